package providers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/tokenledger/internal/providers/claude_code"
	"github.com/janekbaraniewski/tokenledger/internal/providers/codex"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

var ErrUnknownSource = errors.New("unknown source")

// AllSources returns every registered log source, in display order.
func AllSources() []shared.Source {
	return []shared.Source{
		claude_code.New(),
		codex.New(),
	}
}

// SourceByName finds a source by name or alias, ignoring case.
func SourceByName(name string) (shared.Source, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, source := range AllSources() {
		if source.Name() == want || lo.Contains(source.Aliases(), want) {
			return source, nil
		}
	}
	return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownSource, name, strings.Join(SourceNames(), ", "))
}

func SourceNames() []string {
	return lo.Map(AllSources(), func(s shared.Source, _ int) string { return s.Name() })
}
