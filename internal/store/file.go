package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
)

// Backend selection by extension: .db/.sqlite → SQLite, everything else →
// the JSON artifact.
func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Open loads a mapping artifact from an OS path, choosing the backend by
// extension.
func Open(path string) (*Map, error) {
	if isSQLitePath(path) {
		return LoadSQLite(path)
	}
	dir, name, err := splitAbs(path)
	if err != nil {
		return nil, err
	}
	return LoadJSON(osfs.New(dir), name)
}

// Save persists a map to an OS path, choosing the backend by extension.
func Save(m *Map, path string) error {
	if isSQLitePath(path) {
		return m.PersistSQLite(path)
	}
	dir, name, err := splitAbs(path)
	if err != nil {
		return err
	}
	return m.PersistJSON(osfs.New(dir), name)
}

// splitAbs resolves path and roots a billy filesystem at its directory, so
// the temp-file-and-rename dance stays on one filesystem.
func splitAbs(path string) (string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	if _, err := os.Stat(dir); err != nil {
		return "", "", fmt.Errorf("mapping store directory: %w", err)
	}
	return dir, filepath.Base(abs), nil
}
