package shared

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

var timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"}

// FirstNonEmpty returns the first value that is not blank, trimmed.
func FirstNonEmpty(values ...string) string {
	v, _ := lo.Find(values, func(s string) bool { return strings.TrimSpace(s) != "" })
	return strings.TrimSpace(v)
}

// ParseTimestampString reads RFC 3339 timestamps and unix epochs in seconds,
// milliseconds or microseconds. The result is always UTC.
func ParseTimestampString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return UnixAuto(n), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// UnixAuto picks the epoch unit from the magnitude of ts.
func UnixAuto(ts int64) time.Time {
	switch {
	case ts >= 1e15:
		return time.UnixMicro(ts).UTC()
	case ts >= 1e12:
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// ExpandHome resolves a leading "~" against the user's home directory.
func ExpandHome(path string) string {
	path = strings.TrimSpace(path)
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/' && rest[0] != filepath.Separator) {
		return path
	}
	if home := HomeDir(); home != "" {
		return filepath.Join(home, rest)
	}
	return path
}

// HomeDir joins elem onto the user's home directory, or returns "" when the
// home directory is unknown.
func HomeDir(elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ""
	}
	return filepath.Join(append([]string{home}, elem...)...)
}

// SplitPathList splits a comma-separated list of directories, expanding ~.
func SplitPathList(value string) []string {
	return lo.Compact(lo.Map(strings.Split(value, ","), func(p string, _ int) string {
		return ExpandHome(p)
	}))
}

// CollectFilesByExt walks every root and returns the absolute paths of files
// with one of the extensions, sorted and unique. Missing roots are ignored.
func CollectFilesByExt(roots []string, exts map[string]bool) []string {
	match := func(path string) bool { return exts[strings.ToLower(filepath.Ext(path))] }

	var files []string
	for _, root := range lo.Compact(lo.Map(roots, func(r string, _ int) string { return ExpandHome(r) })) {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// A missing root ends its walk; unreadable subtrees are skipped.
				if path == root {
					return fs.SkipAll
				}
				return nil
			}
			if !d.IsDir() && match(path) {
				files = append(files, path)
			}
			return nil
		})
	}
	files = lo.Uniq(files)
	slices.Sort(files)
	return files
}

// FileStem returns the base name without extension.
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
