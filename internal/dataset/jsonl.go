package dataset

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"
)

// ReadJSONL parses a JSON-lines stream (one object per line) into a dataset.
// Columns are the keys of the first record in sorted order; keys first seen
// on later records are appended (sorted) and earlier rows get "" for them.
// Nulls become "".
func ReadJSONL(r io.Reader) (*Dataset, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	ds := New(nil)
	index := make(map[string]int)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		parsed, err := oj.ParseString(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		obj, ok := parsed.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("line %d: not a JSON object", line)
		}

		// Register unseen keys in sorted order for deterministic columns.
		var unseen []string
		for k := range obj {
			if _, ok := index[k]; !ok {
				unseen = append(unseen, k)
			}
		}
		sort.Strings(unseen)
		for _, k := range unseen {
			index[k] = len(ds.Columns)
			ds.Columns = append(ds.Columns, k)
			for i := range ds.Rows {
				ds.Rows[i] = append(ds.Rows[i], "")
			}
		}

		row := make([]string, len(ds.Columns))
		for k, v := range obj {
			row[index[k]] = stringify(v)
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	if len(ds.Columns) == 0 {
		return nil, fmt.Errorf("empty input: no records")
	}
	return ds, nil
}

// WriteJSONL writes the dataset as JSON-lines, preserving column order
// within each object. Empty cells are written as null.
func WriteJSONL(w io.Writer, ds *Dataset) error {
	bw := bufio.NewWriter(w)
	for i, row := range ds.Rows {
		var sb strings.Builder
		sb.WriteByte('{')
		for j, col := range ds.Columns {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(oj.JSON(col))
			sb.WriteByte(':')
			if row[j] == "" {
				sb.WriteString("null")
			} else {
				sb.WriteString(oj.JSON(row[j]))
			}
		}
		sb.WriteString("}\n")
		if _, err := bw.WriteString(sb.String()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// stringify flattens a scalar JSON value to the dataset's string cells.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		// Nested structures are kept as their JSON text.
		return oj.JSON(val)
	}
}
