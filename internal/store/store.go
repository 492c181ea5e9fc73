package store

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sentinel errors for the mapping table's invariants.
var (
	// ErrDuplicateOriginal: Record was called for a (category, original)
	// that already has a token. Record is not an upsert — callers look up
	// first. Hitting this mid-run signals a logic defect.
	ErrDuplicateOriginal = errors.New("original already mapped")
	// ErrDuplicateToken: the token is already bound to another original in
	// the same category. Re-checked defensively even though the generator
	// is seeded with the live token set.
	ErrDuplicateToken = errors.New("token already issued")
	// ErrUnknownToken: unmask-time lookup miss.
	ErrUnknownToken = errors.New("token not found in mapping")
)

// CorruptError marks a persisted mapping artifact that is structurally
// invalid or violates the uniqueness constraints. Such files indicate
// tampering or hand-editing and are never silently accepted.
type CorruptError struct {
	Path   string
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt mapping store %s: %s", e.Path, e.Reason)
}

// Entry is one original↔token correspondence, scoped by category.
type Entry struct {
	Category string
	Original string
	Token    string
}

type catKey struct {
	category string
	value    string
}

// Map is the authoritative mapping table: an ordered, append-only list of
// entries plus two uniqueness indexes. A Map instance is owned exclusively
// by one run; the internal mutex serializes the lookup-then-record path so
// concurrent lookup goroutines never race a recording writer.
//
// Invariant, held before and after every call: within a category, each
// original has at most one token and each token at most one original.
type Map struct {
	mu        sync.RWMutex
	entries   []Entry
	byOrig    map[catKey]string // (category, original) → token
	byToken   map[catKey]string // (category, token) → original
	perCat    map[string]int    // category → issued token count
	createdAt time.Time
	version   int
}

const formatVersion = 1

// NewMap creates an empty mapping table.
func NewMap() *Map {
	return &Map{
		byOrig:    make(map[catKey]string),
		byToken:   make(map[catKey]string),
		perCat:    make(map[string]int),
		createdAt: time.Now().UTC(),
		version:   formatVersion,
	}
}

// LookupByOriginal returns the token for (category, original), if recorded.
func (m *Map) LookupByOriginal(category, original string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.byOrig[catKey{category, original}]
	return tok, ok
}

// LookupByToken returns the original for (category, token), if recorded.
func (m *Map) LookupByToken(category, token string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orig, ok := m.byToken[catKey{category, token}]
	return orig, ok
}

// Record appends a new entry. It fails with ErrDuplicateOriginal or
// ErrDuplicateToken instead of overwriting — entries are never mutated.
func (m *Map) Record(category, original, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byOrig[catKey{category, original}]; ok {
		return fmt.Errorf("record %s %q: %w", category, original, ErrDuplicateOriginal)
	}
	if _, ok := m.byToken[catKey{category, token}]; ok {
		return fmt.Errorf("record %s token %q: %w", category, token, ErrDuplicateToken)
	}
	m.entries = append(m.entries, Entry{Category: category, Original: original, Token: token})
	m.byOrig[catKey{category, original}] = token
	m.byToken[catKey{category, token}] = original
	m.perCat[category]++
	return nil
}

// Len returns the total number of entries.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entries returns a copy of the entries in recorded order.
func (m *Map) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.entries...)
}

// CreatedAt reports when the store was first created.
func (m *Map) CreatedAt() time.Time {
	return m.createdAt
}

// Version reports the artifact format version.
func (m *Map) Version() int {
	return m.version
}

// Categories returns the per-category entry counts.
func (m *Map) Categories() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.perCat))
	for c, n := range m.perCat {
		out[c] = n
	}
	return out
}

// Category returns a live view of one category's issued tokens, suitable
// for seeding the token generator. The view tracks later Record calls.
type CategoryView struct {
	m        *Map
	category string
}

func (m *Map) Category(category string) CategoryView {
	return CategoryView{m: m, category: category}
}

// Has reports whether the token is already issued in this category.
func (v CategoryView) Has(token string) bool {
	_, ok := v.m.LookupByToken(v.category, token)
	return ok
}

// load rebuilds a Map from persisted entries, enforcing both uniqueness
// constraints. Used by the file backends; duplicate entries in a persisted
// artifact are a corruption, not a Record misuse, so the caller converts
// the returned description into a CorruptError.
func load(createdAt time.Time, version int, entries []Entry) (*Map, string) {
	m := NewMap()
	if !createdAt.IsZero() {
		m.createdAt = createdAt
	}
	if version != 0 {
		m.version = version
	}
	for i, e := range entries {
		if e.Category == "" || e.Original == "" || e.Token == "" {
			return nil, fmt.Sprintf("entry %d: missing required field", i)
		}
		if err := m.Record(e.Category, e.Original, e.Token); err != nil {
			switch {
			case errors.Is(err, ErrDuplicateOriginal):
				return nil, fmt.Sprintf("entry %d: duplicate original %q in category %s", i, e.Original, e.Category)
			case errors.Is(err, ErrDuplicateToken):
				return nil, fmt.Sprintf("entry %d: duplicate token %q in category %s", i, e.Token, e.Category)
			default:
				return nil, fmt.Sprintf("entry %d: %v", i, err)
			}
		}
	}
	return m, ""
}
