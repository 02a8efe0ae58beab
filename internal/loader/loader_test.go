package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/providers/claude_code"
	"github.com/janekbaraniewski/tokenledger/internal/providers/codex"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

// countingSource records how many files were actually parsed.
type countingSource struct {
	shared.Source
	parsed atomic.Int64
}

func (s *countingSource) ParseFile(path string, opts shared.ParseOptions) []core.Entry {
	s.parsed.Add(1)
	return s.Source.ParseFile(path, opts)
}

func claudeLine(id, ts string, output int, stop string) string {
	stopField := "null"
	if stop != "" {
		stopField = fmt.Sprintf("%q", stop)
	}
	return fmt.Sprintf(`{"type":"assistant","timestamp":%q,"message":{"id":%q,"model":"claude-sonnet-4-20250514","stop_reason":%s,"usage":{"input_tokens":10,"output_tokens":%d}}}`,
		ts, id, stopField, output) + "\n"
}

func writeLog(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := ""
	for _, l := range lines {
		content += l
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func claudeFixture(t *testing.T) (string, *countingSource) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "projects")
	writeLog(t, filepath.Join(root, "-repo-a", "s1.jsonl"),
		claudeLine("m1", "2025-01-01T10:00:00Z", 1, ""),
		claudeLine("m1", "2025-01-01T10:00:02Z", 40, "end_turn"),
		claudeLine("m2", "2025-01-01T11:00:00Z", 5, "end_turn"),
	)
	writeLog(t, filepath.Join(root, "-repo-b", "s2.jsonl"),
		claudeLine("m3", "2025-01-02T09:00:00Z", 7, "end_turn"),
		// resumed session copies m2 into another file
		claudeLine("m2", "2025-01-01T11:00:00Z", 5, "end_turn"),
	)
	for i := 0; i < 6; i++ {
		writeLog(t, filepath.Join(root, "-repo-c", fmt.Sprintf("bulk-%d.jsonl", i)),
			claudeLine(fmt.Sprintf("bulk-%d", i), "2025-01-03T09:00:00Z", i+1, "end_turn"))
	}
	return root, &countingSource{Source: claude_code.NewWithRoots(root)}
}

func TestLoad_DedupsAcrossFiles(t *testing.T) {
	_, src := claudeFixture(t)
	res, err := New(Options{Location: time.UTC, NoCache: true}).Load(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 8, res.Files)
	assert.Equal(t, 9, len(res.Entries))
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, int64(40), res.Entries[0].Tokens.Output)
	for i := 1; i < len(res.Entries); i++ {
		assert.LessOrEqual(t, core.CompareEntries(res.Entries[i-1], res.Entries[i]), 0)
	}
}

func TestLoad_CacheFidelity(t *testing.T) {
	_, src := claudeFixture(t)
	opts := Options{Location: time.UTC, CacheDir: t.TempDir(), Workers: 3}

	first, err := New(opts).Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, int64(8), src.parsed.Load())
	assert.Equal(t, 0, first.CacheHits)

	src.parsed.Store(0)
	second, err := New(opts).Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, int64(0), src.parsed.Load(), "unchanged files must not be parsed again")
	assert.Equal(t, 8, second.CacheHits)
	if diff := cmp.Diff(first.Entries, second.Entries); diff != "" {
		t.Fatalf("cached load differs (-first +second):\n%s", diff)
	}
}

func TestLoad_CacheInvalidatesChangedFile(t *testing.T) {
	root, src := claudeFixture(t)
	opts := Options{Location: time.UTC, CacheDir: t.TempDir()}
	_, err := New(opts).Load(context.Background(), src)
	require.NoError(t, err)

	path := filepath.Join(root, "-repo-b", "s2.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(claudeLine("m9", "2025-01-04T09:00:00Z", 3, "end_turn"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	src.parsed.Store(0)
	res, err := New(opts).Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, int64(1), src.parsed.Load())
	assert.Equal(t, 10, len(res.Entries))
}

func TestLoad_FilterAppliedAfterDedup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "projects")
	writeLog(t, filepath.Join(root, "p", "s.jsonl"),
		claudeLine("m1", "2025-01-01T23:59:00Z", 1, ""),
		claudeLine("m1", "2025-01-02T00:01:00Z", 50, "end_turn"),
	)
	src := claude_code.NewWithRoots(root)

	dayOne, err := New(Options{
		Location: time.UTC,
		NoCache:  true,
		Filter:   core.DateFilter{Since: "2025-01-01", Until: "2025-01-01"},
	}).Load(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, dayOne.Entries)

	dayTwo, err := New(Options{
		Location: time.UTC,
		NoCache:  true,
		Filter:   core.DateFilter{Since: "2025-01-02"},
	}).Load(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, dayTwo.Entries, 1)
	assert.Equal(t, int64(50), dayTwo.Entries[0].Tokens.Output)
}

func TestLoad_TimezoneChangeRecomputesLocalDate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "projects")
	writeLog(t, filepath.Join(root, "p", "s.jsonl"), claudeLine("m1", "2025-01-01T20:00:00Z", 1, "end_turn"))
	src := claude_code.NewWithRoots(root)
	cacheDir := t.TempDir()

	utc, err := New(Options{Location: time.UTC, CacheDir: cacheDir}).Load(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, utc.Entries, 1)
	assert.Equal(t, "2025-01-01", utc.Entries[0].LocalDate)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	local, err := New(Options{Location: tokyo, CacheDir: cacheDir}).Load(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, local.Entries, 1)
	assert.Equal(t, 1, local.CacheHits)
	assert.Equal(t, "2025-01-02", local.Entries[0].LocalDate)
}

func TestLoad_CodexSkipsDedup(t *testing.T) {
	root := t.TempDir()
	writeLog(t, filepath.Join(root, "2025", "rollout.jsonl"),
		`{"timestamp":"2025-09-01T10:00:01Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":10,"total_tokens":10}}}}`+"\n",
		`{"timestamp":"2025-09-01T10:00:02Z","type":"event_msg","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":25,"total_tokens":25}}}}`+"\n",
	)
	res, err := New(Options{Location: time.UTC, NoCache: true}).Load(context.Background(), codex.NewWithRoots(root))
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, 0, res.Skipped)
}

func TestLoad_MissingRootAndCancelledContext(t *testing.T) {
	src := claude_code.NewWithRoots(filepath.Join(t.TempDir(), "none"))
	res, err := New(Options{NoCache: true}).Load(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, res.Entries)

	_, src2 := claudeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(Options{NoCache: true}).Load(ctx, src2)
	assert.ErrorIs(t, err, context.Canceled)
}
