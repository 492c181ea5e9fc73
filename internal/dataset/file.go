package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadFile loads a dataset, choosing the format by file extension:
// .jsonl/.ndjson for JSON-lines, anything else is treated as CSV.
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }() // safe to ignore

	ds, err := readByExt(f, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, nil
}

// WriteFile writes a dataset, choosing the format by file extension.
func WriteFile(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeByExt(f, path, ds); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readByExt(r io.Reader, path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(r)
	default:
		return ReadCSV(r)
	}
}

func writeByExt(w io.Writer, path string, ds *Dataset) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return WriteJSONL(w, ds)
	default:
		return WriteCSV(w, ds)
	}
}
