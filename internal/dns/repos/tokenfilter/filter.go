// Package tokenfilter is a probabilistic set of dynamic-update tokens. A negative answer is
// definitive, so unknown tokens can be rejected without consulting the zone store.
package tokenfilter

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

// fallbackFPRate replaces a false-positive rate outside (0,1).
const fallbackFPRate = 0.01

// Filter is an immutable bloom filter over a token set. It is rebuilt, not mutated, whenever
// the set of tokens changes, so concurrent MightContain calls need no locking.
type Filter struct {
	bf    *bitsbloom.BloomFilter
	count int
}

// Build sizes a filter for tokens at the given false-positive rate and fills it.
// Empty tokens are ignored.
func Build(tokens []string, fpRate float64) *Filter {
	n := 0
	for _, t := range tokens {
		if t != "" {
			n++
		}
	}
	bits, hashes := dimensions(n, fpRate)
	f := &Filter{bf: bitsbloom.New(bits, hashes)}
	for _, t := range tokens {
		if t == "" {
			continue
		}
		f.bf.AddString(t)
		f.count++
	}
	return f
}

// MightContain reports whether token may be in the set. A nil Filter answers true so callers
// fall through to the exact lookup.
func (f *Filter) MightContain(token string) bool {
	if f == nil {
		return true
	}
	if token == "" || f.count == 0 {
		return false
	}
	return f.bf.TestString(token)
}

// Len returns the number of tokens added.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return f.count
}

// dimensions returns the bit and hash counts for n tokens at rate p. An empty set is sized
// as if it held one token.
func dimensions(n int, p float64) (bits, hashes uint) {
	if n < 1 {
		n = 1
	}
	if p <= 0 || p >= 1 {
		p = fallbackFPRate
	}
	return bitsbloom.EstimateParameters(uint(n), p)
}
