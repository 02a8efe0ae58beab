// Package dedup collapses the repeated records that streaming and
// crash-recovery writes leave for a single model response.
package dedup

import (
	"slices"

	"github.com/janekbaraniewski/tokenledger/internal/core"
)

type Result struct {
	Entries []core.Entry
	// Skipped counts dropped records that carried a message id.
	Skipped int
}

// Deduplicate keeps one record per message id across all files:
//   - the earliest completed record (non-nil stop reason) when one exists,
//   - otherwise the latest record, the most complete streaming snapshot.
//
// Records without a message id are kept only when completed. The result is
// sorted with core.CompareEntries and does not depend on input order.
func Deduplicate(entries []core.Entry) Result {
	groups := make(map[string][]core.Entry)
	var out []core.Entry
	withID := 0
	for _, e := range entries {
		if e.MessageID == "" {
			if e.Completed() {
				out = append(out, e)
			}
			continue
		}
		withID++
		groups[e.MessageID] = append(groups[e.MessageID], e)
	}

	for _, group := range groups {
		out = append(out, pick(group))
	}
	slices.SortFunc(out, core.CompareEntries)
	return Result{Entries: out, Skipped: withID - len(groups)}
}

func pick(group []core.Entry) core.Entry {
	slices.SortFunc(group, core.CompareEntries)
	for _, e := range group {
		if e.Completed() {
			return e
		}
	}
	return group[len(group)-1]
}
