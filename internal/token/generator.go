package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/agentic-research/veil/api"
)

// ErrSpaceExhausted is returned when every suffix in a category's ID space
// is already taken. Collisions below that point are retried, never surfaced.
var ErrSpaceExhausted = errors.New("token space exhausted")

const (
	alphabetHex    = "0123456789ABCDEF"
	alphabetDigits = "0123456789"

	// randomAttempts bounds the random-draw phase before falling back to a
	// sequential probe, which terminates as long as a free suffix exists.
	randomAttempts = 64
)

// Format is the resolved token shape for one category.
type Format struct {
	Prefix   string
	Width    int
	Alphabet string // character set for the suffix
}

// Existing is the set of tokens already issued for a category. The masking
// engine seeds it with the store's token index, which also covers tokens
// minted earlier in the same run.
type Existing interface {
	Has(token string) bool
}

// ResolveFormat fills in defaults for a category: upper-cased category as
// prefix, 8 hex characters of suffix. hint may be nil.
func ResolveFormat(category string, hint *api.TokenFormat) Format {
	f := Format{
		Prefix:   strings.ToUpper(category),
		Width:    8,
		Alphabet: alphabetHex,
	}
	if hint == nil {
		return f
	}
	if hint.Prefix != "" {
		f.Prefix = hint.Prefix
	}
	if hint.Width > 0 {
		f.Width = hint.Width
	}
	if hint.Alphabet == api.AlphabetDigits {
		f.Alphabet = alphabetDigits
	}
	return f
}

// Capacity returns the number of distinct suffixes the format can produce.
// Capped at 2^62 — wider formats are effectively inexhaustible.
func (f Format) Capacity() int64 {
	const cap62 = int64(1) << 62
	c := int64(1)
	base := int64(len(f.Alphabet))
	for i := 0; i < f.Width; i++ {
		if c > cap62/base {
			return cap62
		}
		c *= base
	}
	return c
}

// Generate produces a token for the category that is not present in
// existing. It draws random suffixes first; once the retry budget is spent
// it probes sequentially from a random offset, visiting every suffix the
// format can produce. Exhaustion is therefore decided by actual occupancy
// of this format's space — a category may hold tokens in other shapes
// (e.g. from before a profile format change) without narrowing it.
//
// Generate has no side effects — recording the token is the caller's job.
func Generate(category string, f Format, existing Existing) (string, error) {
	for i := 0; i < randomAttempts; i++ {
		tok := f.Prefix + "_" + randomSuffix(f)
		if !existing.Has(tok) {
			return tok, nil
		}
	}

	// Dense ID space: walk every suffix starting at a random offset.
	capacity := f.Capacity()
	start := randomIndex(capacity)
	for i := int64(0); i < capacity; i++ {
		tok := f.Prefix + "_" + suffixAt((start+i)%capacity, f)
		if !existing.Has(tok) {
			return tok, nil
		}
	}
	return "", fmt.Errorf("category %s: %w", category, ErrSpaceExhausted)
}

// randomSuffix draws Width characters uniformly from the alphabet.
func randomSuffix(f Format) string {
	buf := make([]byte, f.Width)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read does not fail on supported platforms.
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	out := make([]byte, f.Width)
	for i, b := range buf {
		out[i] = f.Alphabet[int(b)%len(f.Alphabet)]
	}
	return string(out)
}

// suffixAt encodes an index as a fixed-width base-|alphabet| string.
func suffixAt(index int64, f Format) string {
	out := make([]byte, f.Width)
	base := int64(len(f.Alphabet))
	for i := f.Width - 1; i >= 0; i-- {
		out[i] = f.Alphabet[index%base]
		index /= base
	}
	return string(out)
}

func randomIndex(capacity int64) int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return int64(v % uint64(capacity))
}
