package api

import (
	"encoding/json"
	"fmt"
	"os"
)

// Profile is the operator-supplied run configuration: which dataset columns
// are masked and under which category each column's values are interpreted.
// Categories scope token uniqueness — two columns sharing a category share
// the same original↔token correspondences.
type Profile struct {
	// Version of the profile schema.
	Version string `json:"version,omitempty"`
	// Columns lists the participating columns. Columns absent from this
	// list pass through verbatim in both directions.
	Columns []ColumnRule `json:"columns"`
}

// ColumnRule binds one dataset column to a category.
type ColumnRule struct {
	// Column is the dataset column name.
	Column string `json:"column"`
	// Category is the semantic class (e.g., "name", "account").
	Category string `json:"category"`
	// Format overrides the token shape for this column's category (optional).
	Format *TokenFormat `json:"format,omitempty"`
}

// TokenFormat describes the shape of generated surrogate tokens.
type TokenFormat struct {
	// Prefix of the token. Defaults to the upper-cased category name.
	Prefix string `json:"prefix,omitempty"`
	// Width is the suffix length in characters. Defaults to 8.
	Width int `json:"width,omitempty"`
	// Alphabet selects the suffix character set: "hex" (default) or "digits".
	Alphabet string `json:"alphabet,omitempty"`
}

const (
	AlphabetHex    = "hex"
	AlphabetDigits = "digits"

	maxTokenWidth = 32
)

// LoadProfile reads and validates a profile from a JSON file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks the profile before any row is processed, so malformed
// assignments fail fast rather than mid-run.
func (p *Profile) Validate() error {
	if len(p.Columns) == 0 {
		return fmt.Errorf("no columns assigned")
	}
	seen := make(map[string]bool, len(p.Columns))
	formats := make(map[string]TokenFormat)
	for i, rule := range p.Columns {
		if rule.Column == "" {
			return fmt.Errorf("columns[%d]: empty column name", i)
		}
		if rule.Category == "" {
			return fmt.Errorf("column %q: empty category", rule.Column)
		}
		if seen[rule.Column] {
			return fmt.Errorf("column %q assigned twice", rule.Column)
		}
		seen[rule.Column] = true

		if rule.Format == nil {
			continue
		}
		f := *rule.Format
		switch f.Alphabet {
		case "", AlphabetHex, AlphabetDigits:
		default:
			return fmt.Errorf("column %q: unknown alphabet %q", rule.Column, f.Alphabet)
		}
		if f.Width < 0 || f.Width > maxTokenWidth {
			return fmt.Errorf("column %q: width %d out of range [0,%d]", rule.Column, f.Width, maxTokenWidth)
		}
		// One token shape per category — columns sharing a category must agree.
		if prev, ok := formats[rule.Category]; ok && prev != f {
			return fmt.Errorf("category %q: conflicting token formats", rule.Category)
		}
		formats[rule.Category] = f
	}
	return nil
}

// CategoryFor returns the category assigned to a column, if any.
func (p *Profile) CategoryFor(column string) (string, bool) {
	for _, rule := range p.Columns {
		if rule.Column == column {
			return rule.Category, true
		}
	}
	return "", false
}

// FormatFor returns the token format override for a category, if any rule
// carries one. Validate guarantees all rules for a category agree.
func (p *Profile) FormatFor(category string) *TokenFormat {
	for _, rule := range p.Columns {
		if rule.Category == category && rule.Format != nil {
			return rule.Format
		}
	}
	return nil
}
