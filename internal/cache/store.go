// Package cache persists parsed entries per log file so unchanged files are
// not parsed again.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/janekbaraniewski/tokenledger/internal/core"
)

// SchemaVersion is bumped whenever the stored entry shape changes; a
// mismatching database is discarded.
const SchemaVersion = "1"

// Fingerprint identifies a file revision. Any change to either field is a
// cache miss.
type Fingerprint struct {
	ModTimeNs int64 `json:"mod_time_ns"`
	Size      int64 `json:"size"`
}

func FingerprintOf(info os.FileInfo) Fingerprint {
	return Fingerprint{ModTimeNs: info.ModTime().UnixNano(), Size: info.Size()}
}

type Record struct {
	Fingerprint
	Entries []core.Entry
}

// Store holds every cached record in memory. It is read concurrently during
// parsing and written once per run with Save.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	mu      sync.RWMutex
	records map[string]Record
}

// DefaultPath returns the per-source database under the user cache dir.
func DefaultPath(source string) (string, error) {
	path, err := xdg.CacheFile(filepath.Join("tokenledger", source+".db"))
	if err != nil {
		return "", fmt.Errorf("cache: resolving path: %w", err)
	}
	return path, nil
}

// Ephemeral returns a store that starts empty and is never persisted.
func Ephemeral() *Store {
	return &Store{logger: zap.NewNop(), records: map[string]Record{}}
}

// Open loads the database at path. It never fails: an unreadable, corrupt or
// outdated database is replaced by an empty one, and when even that is
// impossible the store degrades to Ephemeral.
func Open(ctx context.Context, path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := openStore(ctx, path, logger)
	if err == nil {
		return store
	}
	logger.Debug("cache: discarding unreadable database", zap.String("path", path), zap.Error(err))
	_ = os.Remove(path)
	store, err = openStore(ctx, path, logger)
	if err != nil {
		logger.Debug("cache: running without persistence", zap.String("path", path), zap.Error(err))
		eph := Ephemeral()
		eph.logger = logger
		return eph
	}
	return store
}

func openStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating DB dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening DB: %w", err)
	}
	store := NewStore(db, logger)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, records: map[string]Record{}}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cache_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`); err != nil {
		return fmt.Errorf("cache: init schema: %w", err)
	}

	var version string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_meta WHERE key = 'schema_version'`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("cache: reading schema version: %w", err)
	case version != SchemaVersion:
		s.logger.Debug("cache: schema version changed", zap.String("found", version), zap.String("want", SchemaVersion))
		if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS cached_files;`); err != nil {
			return fmt.Errorf("cache: dropping outdated table: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cached_files (
			path TEXT PRIMARY KEY,
			mod_time_ns INTEGER NOT NULL,
			size INTEGER NOT NULL,
			entries TEXT NOT NULL
		);`); err != nil {
		return fmt.Errorf("cache: init schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO cache_meta (key, value) VALUES ('schema_version', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, SchemaVersion); err != nil {
		return fmt.Errorf("cache: writing schema version: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT path, mod_time_ns, size, entries FROM cached_files`)
	if err != nil {
		return fmt.Errorf("cache: loading records: %w", err)
	}
	defer rows.Close()

	records := map[string]Record{}
	for rows.Next() {
		var (
			path string
			rec  Record
			blob string
		)
		if err := rows.Scan(&path, &rec.ModTimeNs, &rec.Size, &blob); err != nil {
			return fmt.Errorf("cache: scanning record: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &rec.Entries); err != nil {
			s.logger.Debug("cache: dropping undecodable record", zap.String("path", path), zap.Error(err))
			continue
		}
		records[path] = rec
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("cache: iterating records: %w", err)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// Lookup returns the cached entries for path when fp matches the stored
// fingerprint.
func (s *Store) Lookup(path string, fp Fingerprint) ([]core.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[path]
	if !ok || rec.Fingerprint != fp {
		return nil, false
	}
	return rec.Entries, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Save replaces the whole record set in one transaction. Records for files
// that no longer exist are dropped with it.
func (s *Store) Save(ctx context.Context, records map[string]Record) error {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	if s.db == nil {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_files`); err != nil {
		return fmt.Errorf("cache: clearing records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cached_files (path, mod_time_ns, size, entries) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cache: prepare insert: %w", err)
	}
	defer stmt.Close()

	for path, rec := range records {
		blob, err := json.Marshal(rec.Entries)
		if err != nil {
			return fmt.Errorf("cache: marshal entries for %s: %w", path, err)
		}
		if _, err := stmt.ExecContext(ctx, path, rec.ModTimeNs, rec.Size, string(blob)); err != nil {
			return fmt.Errorf("cache: insert %s: %w", path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: commit: %w", err)
	}
	return nil
}
