// Package loader turns a source's log files into the deduplicated, filtered
// entry set that reports are built from.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/janekbaraniewski/tokenledger/internal/cache"
	"github.com/janekbaraniewski/tokenledger/internal/core"
	"github.com/janekbaraniewski/tokenledger/internal/dedup"
	"github.com/janekbaraniewski/tokenledger/internal/providers/shared"
)

const maxDefaultWorkers = 8

type Options struct {
	Filter   core.DateFilter
	Location *time.Location
	// Workers bounds parallel parsing; <= 0 means min(NumCPU, 8).
	Workers int
	// NoCache skips reading and writing the file cache.
	NoCache bool
	// CacheDir overrides the per-user cache directory.
	CacheDir string
	Logger   *zap.Logger
}

type Result struct {
	Source  string
	Entries []core.Entry
	Files   int
	// CacheHits counts files served from the cache without parsing.
	CacheHits int
	Parsed    int
	// Skipped counts duplicate records dropped by dedup.
	Skipped int
}

type Loader struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options) *Loader {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Workers <= 0 {
		opts.Workers = min(runtime.NumCPU(), maxDefaultWorkers)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{opts: opts, logger: logger}
}

type fileResult struct {
	path    string
	fp      cache.Fingerprint
	stat    bool
	hit     bool
	entries []core.Entry
}

// Load discovers, parses and merges every file of src. Only context
// cancellation is reported as an error; unreadable files and cache problems
// degrade to fewer entries or a full reparse.
func (l *Loader) Load(ctx context.Context, src shared.Source) (Result, error) {
	log := l.logger.With(zap.String("source", src.Name()))
	files := src.FindFiles()
	store := l.openCache(ctx, src.Name(), log)
	defer store.Close()

	parseOpts := shared.ParseOptions{Location: l.opts.Location, Logger: log}
	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = loadFile(store, src, path, parseOpts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Source: src.Name(), Files: len(files)}
	records := make(map[string]cache.Record, len(results))
	for _, r := range results {
		if r.hit {
			res.CacheHits++
		} else {
			res.Parsed++
		}
		if r.stat {
			records[r.path] = cache.Record{Fingerprint: r.fp, Entries: r.entries}
		}
	}
	if !l.opts.NoCache && (res.Parsed > 0 || store.Len() != len(records)) {
		if err := store.Save(ctx, records); err != nil {
			log.Debug("cache: save failed", zap.Error(err))
		}
	}

	entries := lo.FlatMap(results, func(r fileResult, _ int) []core.Entry {
		out := make([]core.Entry, len(r.entries))
		for i, e := range r.entries {
			e.LocalDate = core.LocalDate(e.Timestamp, l.opts.Location)
			out[i] = e
		}
		return out
	})

	// Dedup sees the unfiltered set: which record survives must not depend
	// on the date range.
	if src.Capabilities().NeedsDedup {
		deduped := dedup.Deduplicate(entries)
		entries, res.Skipped = deduped.Entries, deduped.Skipped
	}
	if !l.opts.Filter.IsZero() {
		entries = lo.Filter(entries, func(e core.Entry, _ int) bool {
			return l.opts.Filter.Contains(e.LocalDate)
		})
	}
	slices.SortFunc(entries, core.CompareEntries)
	res.Entries = entries

	log.Debug("loaded",
		zap.Int("files", res.Files),
		zap.Int("cache_hits", res.CacheHits),
		zap.Int("parsed", res.Parsed),
		zap.Int("entries", len(res.Entries)),
		zap.Int("duplicates", res.Skipped))
	return res, nil
}

func loadFile(store *cache.Store, src shared.Source, path string, opts shared.ParseOptions) fileResult {
	res := fileResult{path: path}
	info, err := os.Stat(path)
	if err == nil {
		res.fp = cache.FingerprintOf(info)
		res.stat = true
		if entries, ok := store.Lookup(path, res.fp); ok {
			res.entries = entries
			res.hit = true
			return res
		}
	}
	res.entries = src.ParseFile(path, opts)
	return res
}

func (l *Loader) openCache(ctx context.Context, source string, log *zap.Logger) *cache.Store {
	if l.opts.NoCache {
		return cache.Ephemeral()
	}
	path := ""
	if l.opts.CacheDir != "" {
		path = filepath.Join(l.opts.CacheDir, source+".db")
	} else {
		var err error
		if path, err = cache.DefaultPath(source); err != nil {
			log.Debug("cache: unavailable", zap.Error(err))
			return cache.Ephemeral()
		}
	}
	return cache.Open(ctx, path, log)
}
