package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"go.uber.org/zap"
)

const (
	DefaultTTL          = 24 * time.Hour
	DefaultFetchTimeout = 10 * time.Second
	maxTableBytes       = 64 << 20
)

type Options struct {
	Offline bool
	URL     string
	// CachePath defaults to pricing.json under the user cache dir.
	CachePath string
	TTL       time.Duration
	Timeout   time.Duration
	Client    *http.Client
	Logger    *zap.Logger
	Now       func() time.Time
}

func (o *Options) applyDefaults() {
	if o.URL == "" {
		o.URL = LiteLLMURL
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultFetchTimeout
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.CachePath == "" {
		if path, err := DefaultCachePath(); err == nil {
			o.CachePath = path
		}
	}
}

func DefaultCachePath() (string, error) {
	path, err := xdg.CacheFile(filepath.Join("tokenledger", "pricing.json"))
	if err != nil {
		return "", fmt.Errorf("pricing: resolving cache path: %w", err)
	}
	return path, nil
}

// Load builds a resolver without ever failing. Offline it uses the cached
// table of any age. Online it uses a cached table younger than TTL, then a
// single fetch bounded by Timeout, then a stale cached table. The static
// family table backs every path.
func Load(ctx context.Context, opts Options) *Resolver {
	opts.applyDefaults()
	log := opts.Logger

	cached, age, cacheErr := readCache(opts.CachePath, opts.Now())
	if cacheErr != nil {
		log.Debug("pricing: no usable cached table", zap.String("path", opts.CachePath), zap.Error(cacheErr))
	}

	if opts.Offline {
		if cached != nil {
			return NewResolver(cached, OriginCache)
		}
		return StaticResolver()
	}
	if cached != nil && age < opts.TTL {
		return NewResolver(cached, OriginCache)
	}

	data, err := fetch(ctx, opts)
	if err == nil {
		var table Table
		if table, err = ParseLiteLLM(data); err == nil {
			if werr := writeCache(opts.CachePath, data); werr != nil {
				log.Debug("pricing: caching table failed", zap.Error(werr))
			}
			return NewResolver(table, OriginRemote)
		}
	}
	log.Debug("pricing: fetch failed", zap.String("url", opts.URL), zap.Error(err))

	if cached != nil {
		return NewResolver(cached, OriginStaleCache)
	}
	return StaticResolver()
}

func fetch(ctx context.Context, opts Options) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch litellm pricing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("litellm pricing: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTableBytes))
	if err != nil {
		return nil, fmt.Errorf("read litellm pricing: %w", err)
	}
	return data, nil
}

func readCache(path string, now time.Time) (Table, time.Duration, error) {
	if path == "" {
		return nil, 0, fmt.Errorf("no cache path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	table, err := ParseLiteLLM(data)
	if err != nil {
		return nil, 0, err
	}
	return table, now.Sub(info.ModTime()), nil
}

func writeCache(path string, data []byte) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("pricing: creating cache dir: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("pricing: write tmp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("pricing: rename tmp file: %w", err)
	}
	return nil
}
