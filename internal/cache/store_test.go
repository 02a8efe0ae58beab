package cache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janekbaraniewski/tokenledger/internal/core"
)

func sampleEntries() []core.Entry {
	return []core.Entry{
		{
			Timestamp:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			LocalDate:   "2025-03-01",
			MessageID:   "msg_1",
			SessionID:   "s1",
			ProjectPath: "-repo",
			Model:       "sonnet-4",
			Tokens:      core.Tokens{Input: 1, Output: 2, CacheCreation: 3, CacheRead: 4},
			StopReason:  core.StringPtr("end_turn"),
		},
		{
			Timestamp: time.Date(2025, 3, 1, 12, 0, 1, 500, time.UTC),
			LocalDate: "2025-03-01",
			SessionID: "s1",
			Model:     "sonnet-4",
			Tokens:    core.Tokens{Input: 9},
		},
	}
}

func TestStore_SaveAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "claude.db")
	fp := Fingerprint{ModTimeNs: 42, Size: 100}

	store := Open(ctx, path, nil)
	assert.Equal(t, 0, store.Len())
	require.NoError(t, store.Save(ctx, map[string]Record{
		"/logs/a.jsonl": {Fingerprint: fp, Entries: sampleEntries()},
		"/logs/empty.jsonl": {Fingerprint: fp},
	}))
	require.NoError(t, store.Close())

	reopened := Open(ctx, path, nil)
	defer reopened.Close()
	assert.Equal(t, 2, reopened.Len())

	got, ok := reopened.Lookup("/logs/a.jsonl", fp)
	require.True(t, ok)
	if diff := cmp.Diff(sampleEntries(), got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	got, ok = reopened.Lookup("/logs/empty.jsonl", fp)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestStore_FingerprintMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	store := Open(ctx, filepath.Join(t.TempDir(), "c.db"), nil)
	defer store.Close()
	fp := Fingerprint{ModTimeNs: 1, Size: 10}
	require.NoError(t, store.Save(ctx, map[string]Record{"/a": {Fingerprint: fp, Entries: sampleEntries()}}))

	_, ok := store.Lookup("/a", Fingerprint{ModTimeNs: 2, Size: 10})
	assert.False(t, ok)
	_, ok = store.Lookup("/a", Fingerprint{ModTimeNs: 1, Size: 11})
	assert.False(t, ok)
	_, ok = store.Lookup("/b", fp)
	assert.False(t, ok)
}

func TestStore_SaveReplacesRecordSet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.db")
	store := Open(ctx, path, nil)
	fp := Fingerprint{ModTimeNs: 1, Size: 1}
	require.NoError(t, store.Save(ctx, map[string]Record{"/old": {Fingerprint: fp}}))
	require.NoError(t, store.Save(ctx, map[string]Record{"/new": {Fingerprint: fp}}))
	require.NoError(t, store.Close())

	reopened := Open(ctx, path, nil)
	defer reopened.Close()
	_, ok := reopened.Lookup("/old", fp)
	assert.False(t, ok)
	_, ok = reopened.Lookup("/new", fp)
	assert.True(t, ok)
}

func TestOpen_CorruptFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.db")
	require.NoError(t, os.WriteFile(path, []byte("this is definitely not sqlite, just some garbage bytes padded out"), 0o644))

	store := Open(ctx, path, nil)
	defer store.Close()
	assert.Equal(t, 0, store.Len())
	require.NoError(t, store.Save(ctx, map[string]Record{"/a": {Fingerprint: Fingerprint{Size: 1}}}))
	assert.Equal(t, 1, store.Len())
}

func TestInit_DropsOutdatedSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.db")
	store := Open(ctx, path, nil)
	require.NoError(t, store.Save(ctx, map[string]Record{"/a": {Fingerprint: Fingerprint{Size: 1}}}))
	require.NoError(t, store.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE cache_meta SET value = '0' WHERE key = 'schema_version'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened := Open(ctx, path, nil)
	defer reopened.Close()
	assert.Equal(t, 0, reopened.Len())
}

func TestEphemeral(t *testing.T) {
	store := Ephemeral()
	fp := Fingerprint{Size: 3}
	require.NoError(t, store.Save(context.Background(), map[string]Record{"/a": {Fingerprint: fp}}))
	_, ok := store.Lookup("/a", fp)
	assert.True(t, ok)
	assert.NoError(t, store.Close())
}
