// Package codex reads OpenAI Codex CLI session logs.
package codex

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

const (
	sourceName            = "codex"
	homeEnv               = "CODEX_HOME"
	defaultCodexConfigDir = ".codex"
	defaultModel          = "gpt-5"
	completedStopReason   = "complete"
)

type Source struct {
	roots []string
}

func New() *Source { return &Source{} }

func NewWithRoots(roots ...string) *Source { return &Source{roots: roots} }

func (*Source) Name() string        { return sourceName }
func (*Source) DisplayName() string { return "OpenAI Codex" }
func (*Source) Aliases() []string   { return []string{"cx"} }

// Codex totals are cumulative per session and carry no message ids, so the
// delta computation already yields each turn exactly once.
func (*Source) Capabilities() shared.Capabilities {
	return shared.Capabilities{HasReasoningTokens: true}
}

func (s *Source) FindFiles() []string {
	roots := s.roots
	if len(roots) == 0 {
		if dir := DefaultSessionsDir(); dir != "" {
			roots = []string{dir}
		}
	}
	return shared.CollectFilesByExt(roots, map[string]bool{".jsonl": true})
}

// ParseFile starts a fresh accumulator per file: a session's cumulative
// totals never span files.
func (*Source) ParseFile(path string, opts shared.ParseOptions) []core.Entry {
	entries, _, err := ParseSessionFile(path, opts.Loc(), NewAccumulator())
	if err != nil {
		opts.Log().Debug("codex: parse failed",
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

// DefaultSessionsDir returns $CODEX_HOME/sessions, or ~/.codex/sessions.
func DefaultSessionsDir() string {
	if home := shared.ExpandHome(os.Getenv(homeEnv)); home != "" {
		return filepath.Join(home, "sessions")
	}
	return shared.HomeDir(defaultCodexConfigDir, "sessions")
}
