package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFilesByExt(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	for _, name := range []string{"z.jsonl", "a/x.jsonl", "a/b/y.JSONL", "a/notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("{}\n"), 0o644))
	}

	files := CollectFilesByExt([]string{root, root, filepath.Join(root, "missing")}, map[string]bool{".jsonl": true})
	assert.Equal(t, []string{
		filepath.Join(root, "a", "b", "y.JSONL"),
		filepath.Join(root, "a", "x.jsonl"),
		filepath.Join(root, "z.jsonl"),
	}, files)

	assert.Empty(t, CollectFilesByExt([]string{filepath.Join(root, "missing")}, map[string]bool{".jsonl": true}))
}

func TestScanJSONL_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\n  \n{\"a\":2}\n{\"a\":"), 0o644))

	var lines []int
	require.NoError(t, ScanJSONL(path, func(n int, _ []byte) {
		lines = append(lines, n)
	}))
	assert.Equal(t, []int{1, 4, 5}, lines)

	err := ScanJSONL(filepath.Join(t.TempDir(), "missing.jsonl"), func(int, []byte) {})
	assert.Error(t, err)
}

func TestScanJSONL_SkipsOversizedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.jsonl")
	huge := `{"pad":"` + strings.Repeat("x", 9*1024*1024) + `"}`
	content := strings.Join([]string{`{"n":1}`, huge, `{"n":3}`, `{"n":4}`}, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var got []string
	var lines []int
	require.NoError(t, ScanJSONL(path, func(n int, line []byte) {
		lines = append(lines, n)
		got = append(got, string(line))
	}))
	assert.Equal(t, []int{1, 3, 4}, lines)
	assert.Equal(t, []string{`{"n":1}`, `{"n":3}`, `{"n":4}`}, got)
}

func TestParseTimestampString(t *testing.T) {
	ts, err := ParseTimestampString("2025-01-02T03:04:05.678Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC), ts)

	ts, err = ParseTimestampString("1735787045000")
	require.NoError(t, err)
	assert.Equal(t, int64(1735787045), ts.Unix())

	_, err = ParseTimestampString("yesterday")
	assert.Error(t, err)
}

func TestSplitPathListAndStem(t *testing.T) {
	assert.Equal(t, []string{"/a", "/b"}, SplitPathList("/a, ,/b"))
	assert.Equal(t, "session-1", FileStem("/x/y/session-1.jsonl"))
}
