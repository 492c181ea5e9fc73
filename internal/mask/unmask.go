package mask

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/veil/api"
	"github.com/agentic-research/veil/internal/dataset"
	"github.com/agentic-research/veil/internal/store"
)

// Mode selects how unmasking treats tokens missing from the store.
type Mode int

const (
	// FailFast aborts on the first unknown token.
	FailFast Mode = iota
	// Collect restores everything it can and reports every unknown token;
	// affected cells keep their token text so a masked value never
	// masquerades as restored data.
	Collect
)

// CellError identifies one cell whose token has no store entry.
type CellError struct {
	Category string
	Token    string
	Row      int // zero-based data row index
	Column   string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d column %s: %s token %q: %v",
		e.Row, e.Column, e.Category, e.Token, store.ErrUnknownToken)
}

func (e *CellError) Unwrap() error { return store.ErrUnknownToken }

// Report summarizes a Collect-mode run.
type Report struct {
	// Unknown lists every unresolved cell in row order.
	Unknown []*CellError
	// Rows is the set of row indexes with at least one unresolved cell.
	Rows *roaring.Bitmap
}

// Unmask restores original values for every assigned, non-empty cell by
// reverse lookup. The store is never mutated. Unassigned columns and
// empty cells pass through unchanged, mirroring Mask.
//
// Rows are processed sequentially: unmasking is pure lookups, and a single
// pass keeps Collect-mode reports in stable row order.
func Unmask(ds *dataset.Dataset, profile *api.Profile, m *store.Map, mode Mode) (*dataset.Dataset, *Report, error) {
	if err := profile.Validate(); err != nil {
		return nil, nil, fmt.Errorf("column assignments: %w", err)
	}
	bindings := resolveBindings(ds, profile)

	out := ds.CloneShape()
	report := &Report{Rows: roaring.New()}
	for r, row := range out.Rows {
		for _, b := range bindings {
			tok := row[b.col]
			if tok == "" {
				continue
			}
			orig, ok := m.LookupByToken(b.category, tok)
			if !ok {
				cell := &CellError{
					Category: b.category,
					Token:    tok,
					Row:      r,
					Column:   ds.Columns[b.col],
				}
				if mode == FailFast {
					return nil, nil, cell
				}
				report.Unknown = append(report.Unknown, cell)
				report.Rows.Add(uint32(r))
				continue
			}
			row[b.col] = orig
		}
	}
	return out, report, nil
}
