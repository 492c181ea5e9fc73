package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.db")

	m := NewMap()
	require.NoError(t, m.Record("name", "Alice", "NAME_3F0A91C2"))
	require.NoError(t, m.Record("name", "Bob", "NAME_7B2D0E55"))
	require.NoError(t, m.Record("account", "ACC-100", "ACCOUNT_00000001"))

	require.NoError(t, m.PersistSQLite(path))

	back, err := LoadSQLite(path)
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), back.Entries(), "seq order preserves recorded order")
	assert.Equal(t, m.Version(), back.Version())
	assert.Equal(t, m.CreatedAt().Truncate(time.Second), back.CreatedAt())
}

func TestLoadSQLite_Missing(t *testing.T) {
	_, err := LoadSQLite(filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSQLite_CorruptMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.db")

	// A database with the entries table but no meta is not a valid artifact.
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE entries (seq INTEGER PRIMARY KEY, category TEXT, original TEXT, token TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = LoadSQLite(path)
	require.Error(t, err)
	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
}

func TestLoadSQLite_DuplicateSmuggledIn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.db")

	// Bypass the unique indexes to simulate a tampered file.
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);
		CREATE TABLE entries (seq INTEGER PRIMARY KEY, category TEXT NOT NULL, original TEXT NOT NULL, token TEXT NOT NULL);
		INSERT INTO meta VALUES ('version', '1'), ('created_at', '2026-01-02T15:04:05Z');
		INSERT INTO entries VALUES
			(0, 'name', 'Alice', 'NAME_00000001'),
			(1, 'name', 'Alice', 'NAME_00000002');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = LoadSQLite(path)
	require.Error(t, err)
	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Contains(t, corrupt.Reason, "duplicate original")
}

func TestOpenSave_BackendDispatch(t *testing.T) {
	dir := t.TempDir()

	m := NewMap()
	require.NoError(t, m.Record("name", "Alice", "NAME_00000001"))

	jsonPath := filepath.Join(dir, "map.json")
	dbPath := filepath.Join(dir, "map.db")

	require.NoError(t, Save(m, jsonPath))
	require.NoError(t, Save(m, dbPath))

	fromJSON, err := Open(jsonPath)
	require.NoError(t, err)
	fromDB, err := Open(dbPath)
	require.NoError(t, err)
	assert.Equal(t, fromJSON.Entries(), fromDB.Entries())
}

func TestOpen_MissingJSON(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvertBetweenBackends(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "map.json")
	dst := filepath.Join(dir, "map.sqlite3")

	m := NewMap()
	require.NoError(t, m.Record("name", "Alice", "NAME_00000001"))
	require.NoError(t, m.Record("account", "ACC-100", "ACCOUNT_00000001"))
	require.NoError(t, Save(m, src))

	loaded, err := Open(src)
	require.NoError(t, err)
	require.NoError(t, Save(loaded, dst))

	back, err := Open(dst)
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), back.Entries())
}
