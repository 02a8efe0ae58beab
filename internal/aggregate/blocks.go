package aggregate

import (
	"time"

	"github.com/janekbaraniewski/tokenledger/internal/core"
)

type blockWindow struct {
	start time.Time
	end   time.Time
}

// assignBlocks maps each index of the time-sorted entries onto its billing
// window. A window opens at the first entry floored to the hour (to the
// minute when d is not a whole number of hours) and lasts d. The next entry opens a new window when it falls past the window end or
// when the gap since the previous entry in the window exceeds d.
func assignBlocks(sorted []core.Entry, d time.Duration, loc *time.Location) map[int]blockWindow {
	out := make(map[int]blockWindow, len(sorted))
	var (
		current blockWindow
		last    time.Time
		open    bool
	)
	for i, e := range sorted {
		ts := e.Timestamp
		if !open || !ts.Before(current.end) || ts.Sub(last) > d {
			start := floorStart(ts, d, loc)
			current = blockWindow{start: start, end: start.Add(d)}
			open = true
		}
		last = ts
		out[i] = current
	}
	return out
}

// floorStart floors sub-hour windows to the minute so that consecutive starts
// never share a key.
func floorStart(t time.Time, d time.Duration, loc *time.Location) time.Time {
	if d%time.Hour != 0 {
		return t.In(loc).Truncate(time.Minute)
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
}
