package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossInputVariance(t *testing.T) {
	a, err := ValidatePrices(Params{Country: "  KENYA ", Provider: "Acme", Limit: "100"}, testMaxLimit)
	require.NoError(t, err)
	b, err := ValidatePrices(Params{Country: "kenya", Provider: " acme", Limit: "100"}, testMaxLimit)
	require.NoError(t, err)

	assert.Equal(t, Fingerprint(a.FingerprintPairs()), Fingerprint(b.FingerprintPairs()))

	// Pure: the same spec fingerprints identically every time.
	assert.Equal(t, Fingerprint(a.FingerprintPairs()), Fingerprint(a.FingerprintPairs()))
}

func TestFingerprintDistinguishesEveryField(t *testing.T) {
	base := Params{Country: "kenya", Provider: "acme", Limit: "100"}
	spec, err := ValidatePrices(base, testMaxLimit)
	require.NoError(t, err)
	ref := Fingerprint(spec.FingerprintPairs())

	variants := []Params{
		{Country: "nigeria", Provider: "acme", Limit: "100"},
		{Country: "kenya", Provider: "globex", Limit: "100"},
		{Country: "kenya", Provider: "acme", Region: "nairobi", Limit: "100"},
		{Country: "kenya", Provider: "acme", Limit: "101"},
		{Country: "kenya", Provider: "acme", Limit: "100", DateFrom: "2024-01-01"},
		{Country: "kenya", Provider: "acme", Limit: "100", MinPrice: "5"},
		{Country: "kenya", Provider: "acme", Limit: "100", MaxPrice: "5"},
	}
	for _, p := range variants {
		v, err := ValidatePrices(p, testMaxLimit)
		require.NoError(t, err)
		assert.NotEqual(t, ref, Fingerprint(v.FingerprintPairs()), "params %+v", p)
	}
}

func TestFingerprintSeparatorsInValuesDoNotCollide(t *testing.T) {
	// A provider value carrying pair separators must not canonicalize to
	// the same form as two separate filter fields.
	smuggled, err := ValidatePrices(Params{Provider: "x&region=y", Limit: "100"}, testMaxLimit)
	require.NoError(t, err)
	split, err := ValidatePrices(Params{Provider: "x", Region: "y", Limit: "100"}, testMaxLimit)
	require.NoError(t, err)

	assert.NotEqual(t,
		Fingerprint(smuggled.FingerprintPairs()),
		Fingerprint(split.FingerprintPairs()))

	raw := Fingerprint([]Pair{{Key: "provider", Value: "a=b&c"}})
	spelled := Fingerprint([]Pair{{Key: "provider", Value: "a"}, {Key: "b", Value: "c"}})
	assert.NotEqual(t, raw, spelled)
}

func TestFingerprintPairOrderIrrelevant(t *testing.T) {
	fwd := Fingerprint([]Pair{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}})
	rev := Fingerprint([]Pair{{Key: "b", Value: "2"}, {Key: "a", Value: "1"}})
	assert.Equal(t, fwd, rev)
}

func TestFingerprintDropsEmptyValues(t *testing.T) {
	with := Fingerprint([]Pair{{Key: "a", Value: ""}, {Key: "b", Value: "x"}})
	without := Fingerprint([]Pair{{Key: "b", Value: "x"}})
	assert.Equal(t, with, without)
}

func TestFingerprintSeparatesOperations(t *testing.T) {
	spec, err := ValidateAnalytics(Params{Country: "kenya", Metric: "count"}, testMaxLimit)
	require.NoError(t, err)

	prices := Fingerprint(append(spec.FingerprintPairs(), Pair{Key: "op", Value: "list_prices"}))
	agg := Fingerprint(append(spec.FingerprintPairs(), Pair{Key: "op", Value: "aggregate"}))
	assert.NotEqual(t, prices, agg)
}
