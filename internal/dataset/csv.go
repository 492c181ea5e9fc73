package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV parses a CSV stream with a header row into a dataset.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	ds := New(header)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(ds.Rows)+1, err)
		}
		if err := ds.AppendRow(record); err != nil {
			return nil, fmt.Errorf("row %d: %w", len(ds.Rows)+1, err)
		}
	}
	return ds, nil
}

// WriteCSV writes the dataset as CSV with a header row.
func WriteCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range ds.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
