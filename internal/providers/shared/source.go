package shared

import (
	"time"

	"go.uber.org/zap"

	"github.com/janekbaraniewski/tokenledger/internal/core"
)

// Capabilities describes what a source's logs can express. Values are fixed
// per source.
type Capabilities struct {
	HasProjects        bool `json:"has_projects"`
	HasBillingBlocks   bool `json:"has_billing_blocks"`
	HasReasoningTokens bool `json:"has_reasoning_tokens"`
	HasCacheCreation   bool `json:"has_cache_creation"`
	NeedsDedup         bool `json:"needs_dedup"`
}

type ParseOptions struct {
	Filter   core.DateFilter
	Location *time.Location
	Logger   *zap.Logger
}

func (o ParseOptions) Loc() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o ParseOptions) Log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Keep applies the date filter to an entry whose LocalDate is already set.
func (o ParseOptions) Keep(e core.Entry) bool {
	return o.Filter.Contains(e.LocalDate)
}

// Source turns one assistant's log files into canonical entries.
//
// FindFiles never fails: a missing root yields no files. ParseFile never
// fails either: unreadable files and malformed lines are skipped and
// reported through the logger.
type Source interface {
	Name() string
	DisplayName() string
	Aliases() []string
	Capabilities() Capabilities
	FindFiles() []string
	ParseFile(path string, opts ParseOptions) []core.Entry
}
