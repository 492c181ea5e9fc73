package store

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/ohler55/ojg/oj"
)

// JSON artifact layout:
//
//	{
//	  "version": 1,
//	  "created_at": "2026-01-02T15:04:05Z",
//	  "entries": [
//	    {"category": "name", "original": "Alice", "token": "NAME_3F0A91C2"},
//	    ...
//	  ]
//	}
//
// Entries appear in recorded order. Persist always rewrites the whole
// artifact through a temp file + rename, so a crash mid-write leaves the
// previous file intact.

// LoadJSON parses a JSON mapping artifact. Structural problems and
// uniqueness violations surface as *CorruptError.
func LoadJSON(fs billy.Filesystem, path string) (*Map, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping store: %w", err)
	}
	defer func() { _ = f.Close() }() // safe to ignore

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read mapping store %s: %w", path, err)
	}

	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, &CorruptError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	top, ok := parsed.(map[string]any)
	if !ok {
		return nil, &CorruptError{Path: path, Reason: "top level is not an object"}
	}

	version, ok := asInt(top["version"])
	if !ok {
		return nil, &CorruptError{Path: path, Reason: "missing or non-integer version"}
	}
	createdRaw, ok := top["created_at"].(string)
	if !ok {
		return nil, &CorruptError{Path: path, Reason: "missing created_at"}
	}
	createdAt, err := time.Parse(time.RFC3339, createdRaw)
	if err != nil {
		return nil, &CorruptError{Path: path, Reason: fmt.Sprintf("bad created_at: %v", err)}
	}
	rawEntries, ok := top["entries"].([]any)
	if !ok {
		return nil, &CorruptError{Path: path, Reason: "missing entries array"}
	}

	entries := make([]Entry, 0, len(rawEntries))
	for i, raw := range rawEntries {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, &CorruptError{Path: path, Reason: fmt.Sprintf("entry %d is not an object", i)}
		}
		category, _ := obj["category"].(string)
		original, _ := obj["original"].(string)
		token, _ := obj["token"].(string)
		entries = append(entries, Entry{Category: category, Original: original, Token: token})
	}

	m, reason := load(createdAt, version, entries)
	if reason != "" {
		return nil, &CorruptError{Path: path, Reason: reason}
	}
	return m, nil
}

// PersistJSON atomically writes the map as a JSON artifact: the full
// serialized form goes to a temp file in the destination directory, then
// replaces the destination in one rename.
func (m *Map) PersistJSON(fs billy.Filesystem, path string) error {
	text := m.encodeJSON()

	dir := filepath.Dir(path)
	tmp, err := fs.TempFile(dir, ".veil-map-")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write([]byte(text)); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("replace mapping store %s: %w", path, err)
	}
	return nil
}

// encodeJSON renders the artifact by hand: one entry per line, keys in a
// fixed order, so diffs between checkpoints stay readable.
func (m *Map) encodeJSON() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("{\n")
	fmt.Fprintf(&sb, "  \"version\": %d,\n", m.version)
	fmt.Fprintf(&sb, "  \"created_at\": %s,\n", oj.JSON(m.createdAt.Format(time.RFC3339)))
	sb.WriteString("  \"entries\": [")
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("\n    ")
		fmt.Fprintf(&sb, "{\"category\": %s, \"original\": %s, \"token\": %s}",
			oj.JSON(e.Category), oj.JSON(e.Original), oj.JSON(e.Token))
	}
	if len(m.entries) > 0 {
		sb.WriteString("\n  ")
	}
	sb.WriteString("]\n}\n")
	return sb.String()
}

// asInt accepts the integer representations ojg may produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int(n), true
		}
	}
	return 0, false
}
