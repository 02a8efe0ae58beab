package codex

import "github.com/janekbaraniewski/tokenledger/internal/core"

// Usage is a Codex token snapshot. Its fields overlap: InputTokens includes
// the cached part and OutputTokens includes reasoning.
type Usage struct {
	InputTokens           int64 `json:"input_tokens"`
	CachedInputTokens     int64 `json:"cached_input_tokens"`
	CacheReadInputTokens  int64 `json:"cache_read_input_tokens"`
	OutputTokens          int64 `json:"output_tokens"`
	ReasoningOutputTokens int64 `json:"reasoning_output_tokens"`
	TotalTokens           int64 `json:"total_tokens"`
}

func (u Usage) cached() int64 {
	return max(u.CachedInputTokens, u.CacheReadInputTokens)
}

func (u Usage) total() int64 {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.InputTokens + u.OutputTokens
}

func (u Usage) isZero() bool {
	return u.InputTokens == 0 && u.cached() == 0 && u.OutputTokens == 0 && u.ReasoningOutputTokens == 0
}

// Canonical splits the overlapping fields into disjoint counters.
func (u Usage) Canonical() core.Tokens {
	cached := u.cached()
	return core.Tokens{
		Input:     max(0, u.InputTokens-cached),
		Output:    max(0, u.OutputTokens-u.ReasoningOutputTokens),
		Reasoning: max(0, u.ReasoningOutputTokens),
		CacheRead: max(0, cached),
	}
}

func usageDelta(current, previous Usage) Usage {
	return Usage{
		InputTokens:           max(0, current.InputTokens-previous.InputTokens),
		CachedInputTokens:     max(0, current.cached()-previous.cached()),
		OutputTokens:          max(0, current.OutputTokens-previous.OutputTokens),
		ReasoningOutputTokens: max(0, current.ReasoningOutputTokens-previous.ReasoningOutputTokens),
		TotalTokens:           max(0, current.total()-previous.total()),
	}
}

// Accumulator maps a session id to the last cumulative totals seen for it.
type Accumulator map[string]Usage

func NewAccumulator() Accumulator { return Accumulator{} }

// Step folds one token_count event into the accumulator and returns the
// per-turn delta. ok is false when the event adds nothing: it carries no
// cumulative total, the total did not move, or the delta is empty.
//
// The delta is last when the event carries it, otherwise the per-dimension
// difference against the previous snapshot, or the total itself for the
// first snapshot of a session.
func (acc Accumulator) Step(sessionID string, total, last *Usage) (Accumulator, Usage, bool) {
	if acc == nil {
		acc = NewAccumulator()
	}
	if total == nil {
		return acc, Usage{}, false
	}

	previous, seen := acc[sessionID]
	acc[sessionID] = *total
	if seen && total.total() == previous.total() {
		return acc, Usage{}, false
	}

	var delta Usage
	switch {
	case last != nil:
		delta = *last
	case seen:
		delta = usageDelta(*total, previous)
	default:
		delta = *total
	}
	if delta.isZero() {
		return acc, Usage{}, false
	}
	return acc, delta, true
}
