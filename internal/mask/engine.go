package mask

import (
	"fmt"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/veil/api"
	"github.com/agentic-research/veil/internal/dataset"
	"github.com/agentic-research/veil/internal/store"
	"github.com/agentic-research/veil/internal/token"
)

// Options tunes a masking run.
type Options struct {
	// Workers bounds the parallel lookup and substitution phases.
	// Defaults to GOMAXPROCS.
	Workers int
	// CheckpointEvery persists the store after every N newly recorded
	// entries, bounding loss on crash. 0 disables checkpoints.
	CheckpointEvery int
	// Checkpoint persists the store mid-run. Required when
	// CheckpointEvery > 0.
	Checkpoint func(*store.Map) error
}

// binding is a profile rule resolved against the dataset's columns.
type binding struct {
	col      int
	category string
	format   token.Format
}

// Mask substitutes every assigned, non-empty cell with its surrogate token,
// reusing existing store entries and minting new ones for first-seen
// originals. The output has the same row count, column order and column
// set as the input; only assigned cells change.
//
// The run is three phases: a parallel scan that finds originals missing
// from the store, a serialized mint-and-record pass (uniqueness check and
// append must be atomic together, so all writes funnel through one
// goroutine), and a parallel substitution pass. Two rows discovering the
// same new value therefore always end up with one token.
func Mask(ds *dataset.Dataset, profile *api.Profile, m *store.Map, opts Options) (*dataset.Dataset, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("column assignments: %w", err)
	}
	if opts.CheckpointEvery > 0 && opts.Checkpoint == nil {
		return nil, fmt.Errorf("checkpoint interval set without a checkpoint func")
	}
	bindings := resolveBindings(ds, profile)
	if len(bindings) == 0 {
		return ds.CloneShape(), nil
	}

	missing, err := scanMissing(ds, bindings, m, workers(opts))
	if err != nil {
		return nil, err
	}

	if err := mintAndRecord(missing, bindings, m, opts); err != nil {
		return nil, err
	}

	return substitute(ds, bindings, m, workers(opts))
}

func workers(opts Options) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// resolveBindings maps profile rules onto dataset column positions.
// Profile columns absent from this dataset are skipped — one profile is
// meant to be shared across files with differing column sets.
func resolveBindings(ds *dataset.Dataset, profile *api.Profile) []binding {
	var out []binding
	for _, rule := range profile.Columns {
		col := ds.ColumnIndex(rule.Column)
		if col < 0 {
			continue
		}
		out = append(out, binding{
			col:      col,
			category: rule.Category,
			format:   token.ResolveFormat(rule.Category, profile.FormatFor(rule.Category)),
		})
	}
	return out
}

type pair struct {
	category string
	value    string
}

// scanMissing walks all assigned cells in parallel chunks and returns the
// distinct (category, value) pairs with no store entry, ordered by first
// appearance. The scan only reads the store.
func scanMissing(ds *dataset.Dataset, bindings []binding, m *store.Map, nWorkers int) ([]pair, error) {
	chunks := chunkRows(len(ds.Rows), nWorkers)
	found := make([][]pair, len(chunks))

	var g errgroup.Group
	g.SetLimit(nWorkers)
	for ci, ch := range chunks {
		g.Go(func() error {
			seen := make(map[pair]bool)
			var local []pair
			for r := ch.lo; r < ch.hi; r++ {
				row := ds.Rows[r]
				for _, b := range bindings {
					v := row[b.col]
					if v == "" {
						continue
					}
					p := pair{b.category, v}
					if seen[p] {
						continue
					}
					seen[p] = true
					if _, ok := m.LookupByOriginal(b.category, v); !ok {
						local = append(local, p)
					}
				}
			}
			found[ci] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in chunk order so mint order tracks first appearance.
	merged := make([]pair, 0)
	seen := make(map[pair]bool)
	for _, local := range found {
		for _, p := range local {
			if !seen[p] {
				seen[p] = true
				merged = append(merged, p)
			}
		}
	}
	return merged, nil
}

// mintAndRecord is the single-writer funnel: one goroutine mints tokens and
// appends entries, so the generator always sees the live token set.
func mintAndRecord(missing []pair, bindings []binding, m *store.Map, opts Options) error {
	formats := make(map[string]token.Format, len(bindings))
	for _, b := range bindings {
		formats[b.category] = b.format
	}

	sinceCheckpoint := 0
	for _, p := range missing {
		// A shared store may have gained the entry between scan and mint
		// (e.g. two columns assigned the same category in one profile are
		// deduped above, but a reloaded checkpoint may not be).
		if _, ok := m.LookupByOriginal(p.category, p.value); ok {
			continue
		}
		tok, err := token.Generate(p.category, formats[p.category], m.Category(p.category))
		if err != nil {
			return err
		}
		if err := m.Record(p.category, p.value, tok); err != nil {
			// Lookup-before-record makes this unreachable; treat as fatal.
			return fmt.Errorf("mapping store rejected new entry: %w", err)
		}

		sinceCheckpoint++
		if opts.CheckpointEvery > 0 && sinceCheckpoint >= opts.CheckpointEvery {
			if err := opts.Checkpoint(m); err != nil {
				// A failed checkpoint is not fatal: the final persist still
				// covers everything, the crash window just stays larger.
				log.Printf("mask: checkpoint failed: %v", err)
			}
			sinceCheckpoint = 0
		}
	}
	return nil
}

// substitute builds the masked dataset; by now every assigned non-empty
// value has an entry, so a miss is an internal inconsistency.
func substitute(ds *dataset.Dataset, bindings []binding, m *store.Map, nWorkers int) (*dataset.Dataset, error) {
	out := ds.CloneShape()
	chunks := chunkRows(len(ds.Rows), nWorkers)

	var g errgroup.Group
	g.SetLimit(nWorkers)
	for _, ch := range chunks {
		g.Go(func() error {
			for r := ch.lo; r < ch.hi; r++ {
				for _, b := range bindings {
					v := out.Rows[r][b.col]
					if v == "" {
						continue
					}
					tok, ok := m.LookupByOriginal(b.category, v)
					if !ok {
						return fmt.Errorf("row %d column %s: value vanished from store mid-run", r, ds.Columns[b.col])
					}
					out.Rows[r][b.col] = tok
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowChunk struct {
	lo, hi int
}

// chunkRows splits [0, n) into at most nWorkers contiguous ranges.
func chunkRows(n, nWorkers int) []rowChunk {
	if n == 0 {
		return nil
	}
	size := (n + nWorkers - 1) / nWorkers
	var chunks []rowChunk
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		chunks = append(chunks, rowChunk{lo: lo, hi: hi})
	}
	return chunks
}
