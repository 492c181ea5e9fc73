// Package detect profiles dataset columns for likely sensitive identifiers,
// combining three signals: column-name keywords, content patterns, and
// value cardinality. Findings are suggestions for the operator to review,
// never an automatic masking decision.
package detect

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/veil/api"
	"github.com/agentic-research/veil/internal/dataset"
)

// categoryKeywords maps a category to column-name fragments that suggest it.
var categoryKeywords = map[string][]string{
	"name": {
		"name", "fullname", "full_name", "first_name", "last_name",
		"firstname", "lastname", "username", "user_name",
	},
	"email": {"email", "e-mail", "mail", "email_address"},
	"phone": {"phone", "mobile", "telephone", "cell", "contact_number"},
	"id": {
		"ssn", "social_security", "passport", "license", "national_id",
		"nric", "id_number", "employee_id", "customer_id", "user_id",
	},
	"address":   {"address", "street", "location", "residence", "postal"},
	"financial": {"account", "credit_card", "card_number", "bank", "iban"},
}

// contentPattern pairs a compiled value regex with the category it implies.
type contentPattern struct {
	name     string
	category string
	re       *regexp.Regexp
}

var contentPatterns = []contentPattern{
	{"email", "email", regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)},
	{"ssn", "id", regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)},
	{"credit_card", "financial", regexp.MustCompile(`^\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}$`)},
	{"phone", "phone", regexp.MustCompile(`^[\+]?[(]?[0-9]{1,4}[)]?[-\s\.]?[(]?[0-9]{1,4}[)]?[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,9}$`)},
}

// Config tunes the heuristics.
type Config struct {
	// SampleSize caps how many non-empty values per column feed the
	// content-pattern check.
	SampleSize int
	// PatternRatio is the fraction of sampled values that must match a
	// content pattern before the column is flagged.
	PatternRatio float64
	// CardinalityRatio is the distinct/non-empty ratio above which a
	// column looks like an identifier.
	CardinalityRatio float64
}

// DefaultConfig returns the thresholds the original heuristics were tuned
// to: 100-value samples, 70% pattern agreement, 80% uniqueness.
func DefaultConfig() Config {
	return Config{SampleSize: 100, PatternRatio: 0.7, CardinalityRatio: 0.8}
}

// Finding is one column flagged as likely sensitive.
type Finding struct {
	Column   string
	Category string
	Reasons  []string
}

// columnStats gathers per-column evidence. Pattern hits are kept as
// roaring row sets so overlapping patterns stay cheap to compare and the
// match ratio falls out of the cardinality.
type columnStats struct {
	nonEmpty int
	sampled  uint32
	distinct map[string]struct{}
	hits     map[string]*roaring.Bitmap // pattern name → sampled-row set
}

// Scan profiles every column and returns findings for those that trip at
// least one heuristic, in dataset column order.
func Scan(ds *dataset.Dataset, cfg Config) []Finding {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultConfig().SampleSize
	}
	if cfg.PatternRatio <= 0 {
		cfg.PatternRatio = DefaultConfig().PatternRatio
	}
	if cfg.CardinalityRatio <= 0 {
		cfg.CardinalityRatio = DefaultConfig().CardinalityRatio
	}

	var findings []Finding
	for col, name := range ds.Columns {
		st := gatherStats(ds, col, cfg.SampleSize)
		var reasons []string
		category := ""

		if cat, keyword, ok := matchKeyword(name); ok {
			category = cat
			reasons = append(reasons, fmt.Sprintf("name keyword %q (%s)", keyword, cat))
		}

		if pat, ratio, ok := bestPattern(st, cfg.PatternRatio); ok {
			if category == "" {
				category = pat.category
			}
			reasons = append(reasons, fmt.Sprintf("content pattern %s (%.0f%% of sample)", pat.name, ratio*100))
		}

		if st.nonEmpty > 0 {
			ratio := float64(len(st.distinct)) / float64(st.nonEmpty)
			if ratio > cfg.CardinalityRatio {
				if category == "" {
					category = "id"
				}
				reasons = append(reasons, fmt.Sprintf("high uniqueness (%d/%d distinct)", len(st.distinct), st.nonEmpty))
			}
		}

		if len(reasons) > 0 {
			findings = append(findings, Finding{Column: name, Category: category, Reasons: reasons})
		}
	}
	return findings
}

// EmitProfile converts findings into a starter profile the operator can
// edit before masking.
func EmitProfile(findings []Finding) *api.Profile {
	p := &api.Profile{Version: "v1"}
	for _, f := range findings {
		p.Columns = append(p.Columns, api.ColumnRule{Column: f.Column, Category: f.Category})
	}
	return p
}

func gatherStats(ds *dataset.Dataset, col, sampleSize int) *columnStats {
	st := &columnStats{
		distinct: make(map[string]struct{}),
		hits:     make(map[string]*roaring.Bitmap, len(contentPatterns)),
	}
	for _, p := range contentPatterns {
		st.hits[p.name] = roaring.New()
	}
	for _, row := range ds.Rows {
		v := row[col]
		if v == "" {
			continue
		}
		st.nonEmpty++
		st.distinct[v] = struct{}{}
		if int(st.sampled) >= sampleSize {
			continue
		}
		for _, p := range contentPatterns {
			probe := v
			if p.name == "credit_card" {
				probe = strings.ReplaceAll(v, " ", "")
			}
			if p.re.MatchString(probe) {
				st.hits[p.name].Add(st.sampled)
			}
		}
		st.sampled++
	}
	return st
}

func matchKeyword(column string) (category, keyword string, ok bool) {
	col := strings.ToLower(strings.ReplaceAll(column, " ", "_"))

	// Deterministic order regardless of map iteration.
	cats := make([]string, 0, len(categoryKeywords))
	for c := range categoryKeywords {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(col, kw) {
				return cat, kw, true
			}
		}
	}
	return "", "", false
}

// bestPattern returns the content pattern with the highest sample match
// ratio at or above the threshold.
func bestPattern(st *columnStats, threshold float64) (contentPattern, float64, bool) {
	if st.sampled == 0 {
		return contentPattern{}, 0, false
	}
	var best contentPattern
	bestRatio := 0.0
	for _, p := range contentPatterns {
		ratio := float64(st.hits[p.name].GetCardinality()) / float64(st.sampled)
		if ratio > bestRatio {
			best = p
			bestRatio = ratio
		}
	}
	if bestRatio >= threshold {
		return best, bestRatio, true
	}
	return contentPattern{}, 0, false
}
