package dataset

import "fmt"

// Dataset is an ordered sequence of rows over a fixed column set.
// Cell values are strings; the empty string doubles as null — readers map
// missing/null fields to "" and the engines pass "" through untouched.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty dataset with the given column order.
func New(columns []string) *Dataset {
	return &Dataset{Columns: columns}
}

// ColumnIndex returns the position of a column, or -1 if absent.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds a row, which must match the column count.
func (d *Dataset) AppendRow(row []string) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("row has %d fields, dataset has %d columns", len(row), len(d.Columns))
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// CloneShape returns a new dataset with the same columns and pre-allocated
// row storage. Row contents are copied so the source stays untouched.
func (d *Dataset) CloneShape() *Dataset {
	out := &Dataset{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([][]string, len(d.Rows)),
	}
	for i, row := range d.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}
