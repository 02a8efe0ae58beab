// Package claude_code reads Claude Code conversation logs.
package claude_code

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

const (
	sourceName = "claude"
	configEnv  = "CLAUDE_CONFIG_DIR"
)

type Source struct {
	roots []string
}

func New() *Source { return &Source{} }

// NewWithRoots overrides root discovery; used by tests and the CLI.
func NewWithRoots(roots ...string) *Source { return &Source{roots: roots} }

func (*Source) Name() string        { return sourceName }
func (*Source) DisplayName() string { return "Claude Code" }
func (*Source) Aliases() []string   { return []string{"cc"} }

func (*Source) Capabilities() shared.Capabilities {
	return shared.Capabilities{
		HasProjects:      true,
		HasBillingBlocks: true,
		HasCacheCreation: true,
		NeedsDedup:       true,
	}
}

func (s *Source) FindFiles() []string {
	roots := s.roots
	if len(roots) == 0 {
		roots = DefaultProjectsDirs()
	}
	return shared.CollectFilesByExt(roots, map[string]bool{".jsonl": true})
}

func (*Source) ParseFile(path string, opts shared.ParseOptions) []core.Entry {
	entries, err := ParseConversationFile(path, opts.Loc())
	if err != nil {
		opts.Log().Debug("claude: parse failed",
			zap.String("path", path), zap.Error(err), zap.Int("entries", len(entries)))
	}
	if opts.Filter.IsZero() {
		return entries
	}
	out := entries[:0]
	for _, e := range entries {
		if opts.Keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// DefaultProjectsDirs lists the project directories to scan. CLAUDE_CONFIG_DIR
// (comma separated) replaces the defaults when set.
func DefaultProjectsDirs() []string {
	if env := os.Getenv(configEnv); env != "" {
		var dirs []string
		for _, dir := range shared.SplitPathList(env) {
			dirs = append(dirs, filepath.Join(dir, "projects"))
		}
		return dirs
	}
	var dirs []string
	for _, dir := range []string{
		shared.HomeDir(".config", "claude", "projects"),
		shared.HomeDir(".claude", "projects"),
	} {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
