// Package aggregate folds entries into report buckets.
package aggregate

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/pricing"
)

// Grouping selects the bucket key.
type Grouping string

const (
	ByDay     Grouping = "day"
	ByWeek    Grouping = "week"
	ByMonth   Grouping = "month"
	BySession Grouping = "session"
	ByProject Grouping = "project"
	ByBlock   Grouping = "block"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

const (
	DefaultBlockDuration = 5 * time.Hour
	unknownProject       = "unknown"
	blockKeyLayout       = "2006-01-02 15:04"
)

// Pricer supplies the price vector for a normalized model.
type Pricer interface {
	Price(model string) pricing.PriceVector
}

type Options struct {
	By            Grouping
	Location      *time.Location
	BlockDuration time.Duration
	Breakdown     bool
	Order         Order
}

type ModelTotals struct {
	Tokens core.Tokens `json:"tokens"`
	Cost   float64     `json:"cost"`
	Count  int         `json:"count"`
}

type Bucket struct {
	Key      string      `json:"key"`
	Label    string      `json:"label"`
	Tokens   core.Tokens `json:"tokens"`
	Cost     float64     `json:"cost"`
	Count    int         `json:"count"`
	First    time.Time   `json:"first"`
	Last     time.Time   `json:"last"`
	Sessions int         `json:"sessions"`
	Project  string      `json:"project,omitempty"`

	// ModelsUsed lists the distinct models, sorted. Models holds per-model
	// totals and is only filled with Breakdown.
	ModelsUsed []string                `json:"models_used"`
	Models     map[string]*ModelTotals `json:"models,omitempty"`

	// End is the block window end; zero for other groupings.
	End time.Time `json:"end,omitzero"`

	sessions map[string]struct{}
	models   map[string]struct{}
}

func ParseGrouping(s string) (Grouping, error) {
	g := Grouping(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case ByDay, ByWeek, ByMonth, BySession, ByProject, ByBlock:
		return g, nil
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("unknown order %q (want asc or desc)", s)
}

// Aggregate folds entries into buckets sorted by key. The input is copied and
// put in a total order first, so the result does not depend on the order in
// which files were read.
func Aggregate(entries []core.Entry, pricer Pricer, opts Options) []Bucket {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.BlockDuration <= 0 {
		opts.BlockDuration = DefaultBlockDuration
	}
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, core.CompareEntries)

	var keyOf func(core.Entry) (key, label string)
	var blocks map[int]blockWindow
	switch opts.By {
	case ByBlock:
		blocks = assignBlocks(sorted, opts.BlockDuration, opts.Location)
	default:
		keyOf = calendarKey(opts)
	}

	buckets := map[string]*Bucket{}
	for i, e := range sorted {
		var key, label string
		var end time.Time
		if blocks != nil {
			w := blocks[i]
			key, end = w.start.In(opts.Location).Format(blockKeyLayout), w.end
			label = key
		} else {
			key, label = keyOf(e)
		}
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Key: key, Label: label, First: e.Timestamp, End: end, sessions: map[string]struct{}{}, models: map[string]struct{}{}}
			if opts.By == BySession {
				b.Project = e.ProjectPath
			}
			buckets[key] = b
		}
		b.add(e, pricer.Price(e.Model), opts.Breakdown)
	}

	out := make([]Bucket, 0, len(buckets))
	for _, key := range lo.Keys(buckets) {
		b := buckets[key]
		b.Sessions = len(b.sessions)
		b.ModelsUsed = lo.Keys(b.models)
		slices.Sort(b.ModelsUsed)
		b.sessions, b.models = nil, nil
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b Bucket) int { return strings.Compare(a.Key, b.Key) })
	if opts.Order == Desc {
		slices.Reverse(out)
	}
	return out
}

func (b *Bucket) add(e core.Entry, price pricing.PriceVector, breakdown bool) {
	cost := pricing.Cost(e.Tokens, price)
	b.Tokens.Add(e.Tokens)
	b.Cost += cost
	b.Count++
	if e.Timestamp.Before(b.First) {
		b.First = e.Timestamp
	}
	if e.Timestamp.After(b.Last) {
		b.Last = e.Timestamp
	}
	b.sessions[e.SessionID] = struct{}{}
	b.models[e.Model] = struct{}{}
	if !breakdown {
		return
	}
	if b.Models == nil {
		b.Models = map[string]*ModelTotals{}
	}
	m, ok := b.Models[e.Model]
	if !ok {
		m = &ModelTotals{}
		b.Models[e.Model] = m
	}
	m.Tokens.Add(e.Tokens)
	m.Cost += cost
	m.Count++
}

func calendarKey(opts Options) func(core.Entry) (string, string) {
	loc := opts.Location
	switch opts.By {
	case ByWeek:
		return func(e core.Entry) (string, string) {
			key := WeekStart(e.Timestamp.In(loc)).Format(core.DateLayout)
			year, week := e.Timestamp.In(loc).ISOWeek()
			return key, fmt.Sprintf("%d-W%02d", year, week)
		}
	case ByMonth:
		return func(e core.Entry) (string, string) {
			key := e.Timestamp.In(loc).Format("2006-01")
			return key, key
		}
	case BySession:
		return func(e core.Entry) (string, string) {
			return e.SessionID, e.SessionID
		}
	case ByProject:
		return func(e core.Entry) (string, string) {
			key := e.ProjectPath
			if key == "" {
				key = unknownProject
			}
			return key, ProjectName(key)
		}
	default:
		return func(e core.Entry) (string, string) {
			key := e.Timestamp.In(loc).Format(core.DateLayout)
			return key, key
		}
	}
}

// WeekStart returns midnight of the Monday starting t's ISO week, in t's
// location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// ProjectName turns a project path into a display name: the last path
// element for real paths, the encoded directory name without its leading
// dashes otherwise.
func ProjectName(path string) string {
	if strings.Contains(path, "/") {
		trimmed := strings.TrimRight(path, "/")
		if i := strings.LastIndex(trimmed, "/"); i >= 0 {
			trimmed = trimmed[i+1:]
		}
		if trimmed != "" {
			return trimmed
		}
		return path
	}
	if name := strings.TrimLeft(path, "-"); name != "" {
		return name
	}
	return path
}

// Totals sums a report.
func Totals(buckets []Bucket) Bucket {
	total := Bucket{Key: "total", Label: "Total"}
	for _, b := range buckets {
		total.Tokens.Add(b.Tokens)
		total.Count += b.Count
	}
	total.Cost = lo.SumBy(buckets, func(b Bucket) float64 { return b.Cost })
	return total
}
