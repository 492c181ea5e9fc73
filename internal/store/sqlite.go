package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite backend for mapping stores too large to eyeball as JSON. Same
// triples, same invariants — the UNIQUE indexes mirror the in-memory
// constraints so even a hand-edited file cannot smuggle duplicates in.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	seq INTEGER PRIMARY KEY,
	category TEXT NOT NULL,
	original TEXT NOT NULL,
	token TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_original ON entries(category, original);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_token ON entries(category, token);
`

// LoadSQLite reads a SQLite mapping artifact from disk, streaming entries
// in recorded (seq) order.
func LoadSQLite(path string) (*Map, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open mapping store: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	createdAt, version, err := readMeta(db)
	if err != nil {
		return nil, &CorruptError{Path: path, Reason: err.Error()}
	}

	rows, err := db.Query("SELECT category, original, token FROM entries ORDER BY seq")
	if err != nil {
		return nil, &CorruptError{Path: path, Reason: fmt.Sprintf("query entries: %v", err)}
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Category, &e.Original, &e.Token); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	m, reason := load(createdAt, version, entries)
	if reason != "" {
		return nil, &CorruptError{Path: path, Reason: reason}
	}
	return m, nil
}

// PersistSQLite atomically writes the map as a SQLite artifact. The
// database is built in a temp file beside the destination, then swapped in
// with a rename — same discipline as the JSON backend.
func (m *Map) PersistSQLite(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".veil-map-*.db")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := m.writeSQLite(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace mapping store %s: %w", path, err)
	}
	return nil
}

func (m *Map) writeSQLite(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	// Bulk-insert tuning; durability comes from the rename, not the journal.
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin persist: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op if committed

	m.mu.RLock()
	createdAt := m.createdAt
	version := m.version
	entries := append([]Entry(nil), m.entries...)
	m.mu.RUnlock()

	if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES ('version', ?), ('created_at', ?)",
		strconv.Itoa(version), createdAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO entries (seq, category, original, token) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }() // safe to ignore

	for i, e := range entries {
		if _, err := stmt.Exec(i, e.Category, e.Original, e.Token); err != nil {
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func readMeta(db *sql.DB) (time.Time, int, error) {
	rows, err := db.Query("SELECT key, value FROM meta")
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("missing meta table: %v", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return time.Time{}, 0, fmt.Errorf("scan meta: %v", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return time.Time{}, 0, err
	}

	version, err := strconv.Atoi(meta["version"])
	if err != nil {
		return time.Time{}, 0, errors.New("missing or non-integer version")
	}
	createdAt, err := time.Parse(time.RFC3339, meta["created_at"])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("bad created_at: %v", err)
	}
	return createdAt, version, nil
}
