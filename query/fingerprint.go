package query

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Pair is one canonical fingerprint component.
type Pair struct {
	Key   string
	Value string
}

// Fingerprint derives a deterministic cache key from pairs: empty values
// are dropped, the rest sort by key and join as k=v&k=v with keys and
// values escaped, and the canonical form is hashed. Escaping keeps a value
// containing '&' or '=' from reading as extra pairs, so distinct queries
// cannot collide by smuggling separators; two logically identical queries
// always fingerprint the same way regardless of argument order or spelling
// variance upstream normalization already removed.
func Fingerprint(pairs []Pair) string {
	kept := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.Value != "" {
			kept = append(kept, p)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Key < kept[j].Key })

	var b strings.Builder
	for i, p := range kept {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "q" + hex.EncodeToString(sum[:12])
}

// FingerprintPairs lists the spec's canonical components. Callers add
// operation and dataset pairs of their own so distinct operations over the
// same filters never share a key.
func (s Spec) FingerprintPairs() []Pair {
	return []Pair{
		{Key: "provider", Value: s.Provider},
		{Key: "country", Value: s.Country},
		{Key: "region", Value: s.Region},
		{Key: "date_from", Value: s.DateFrom},
		{Key: "date_to", Value: s.DateTo},
		{Key: "limit", Value: intValue(s.Limit)},
	}
}

func (s PriceSpec) FingerprintPairs() []Pair {
	return append(s.Spec.FingerprintPairs(),
		Pair{Key: "min_price", Value: floatPtrValue(s.MinPrice)},
		Pair{Key: "max_price", Value: floatPtrValue(s.MaxPrice)},
	)
}

func (s RealEstateSpec) FingerprintPairs() []Pair {
	return append(s.Spec.FingerprintPairs(),
		Pair{Key: "min_bedrooms", Value: intPtrValue(s.MinBedrooms)},
		Pair{Key: "max_bedrooms", Value: intPtrValue(s.MaxBedrooms)},
	)
}

func (s AnalyticsSpec) FingerprintPairs() []Pair {
	return append(s.Spec.FingerprintPairs(),
		Pair{Key: "metric", Value: string(s.Metric)},
	)
}

func intValue(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func intPtrValue(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func floatPtrValue(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}
