package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxLimit = 10000

func TestValidatePrices(t *testing.T) {
	p := Params{
		Provider: "  ACME ",
		Country:  "Kenya",
		Region:   "NAIROBI",
		DateFrom: "2024-01-01",
		DateTo:   "2024-02-01",
		Limit:    "100",
		MinPrice: "5",
		MaxPrice: "50.5",
	}

	spec, err := ValidatePrices(p, testMaxLimit)
	require.NoError(t, err)
	assert.Equal(t, "acme", spec.Provider)
	assert.Equal(t, "kenya", spec.Country)
	assert.Equal(t, "nairobi", spec.Region)
	assert.Equal(t, "2024-01-01", spec.DateFrom)
	assert.Equal(t, "2024-02-01", spec.DateTo)
	assert.Equal(t, 100, spec.Limit)
	require.NotNil(t, spec.MinPrice)
	assert.Equal(t, 5.0, *spec.MinPrice)
	require.NotNil(t, spec.MaxPrice)
	assert.Equal(t, 50.5, *spec.MaxPrice)
}

func TestValidatePricesRejects(t *testing.T) {
	tests := []struct {
		name  string
		p     Params
		field string
	}{
		{name: "missing limit", p: Params{}, field: "limit"},
		{name: "zero limit", p: Params{Limit: "0"}, field: "limit"},
		{name: "negative limit", p: Params{Limit: "-5"}, field: "limit"},
		{name: "limit above ceiling", p: Params{Limit: "10001"}, field: "limit"},
		{name: "limit not a number", p: Params{Limit: "many"}, field: "limit"},
		{name: "bad date", p: Params{Limit: "10", DateFrom: "January 1"}, field: "date_from"},
		{name: "inverted dates", p: Params{Limit: "10", DateFrom: "2024-02-01", DateTo: "2024-01-01"}, field: "date_from"},
		{name: "min price not a number", p: Params{Limit: "10", MinPrice: "cheap"}, field: "min_price"},
		{name: "negative min price", p: Params{Limit: "10", MinPrice: "-1"}, field: "min_price"},
		{name: "negative max price", p: Params{Limit: "10", MaxPrice: "-0.5"}, field: "max_price"},
		{name: "inverted price range", p: Params{Limit: "10", MinPrice: "50", MaxPrice: "10"}, field: "min_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePrices(tt.p, testMaxLimit)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateRealEstate(t *testing.T) {
	spec, err := ValidateRealEstate(Params{Limit: "25", MinBedrooms: "2", MaxBedrooms: "4"}, testMaxLimit)
	require.NoError(t, err)
	assert.Equal(t, 25, spec.Limit)
	require.NotNil(t, spec.MinBedrooms)
	assert.Equal(t, 2, *spec.MinBedrooms)
	require.NotNil(t, spec.MaxBedrooms)
	assert.Equal(t, 4, *spec.MaxBedrooms)
}

func TestValidateRealEstateRejects(t *testing.T) {
	tests := []struct {
		name  string
		p     Params
		field string
	}{
		{name: "bedrooms not an integer", p: Params{Limit: "10", MinBedrooms: "two"}, field: "min_bedrooms"},
		{name: "negative bedrooms", p: Params{Limit: "10", MinBedrooms: "-1"}, field: "min_bedrooms"},
		{name: "inverted bedroom range", p: Params{Limit: "10", MinBedrooms: "4", MaxBedrooms: "2"}, field: "min_bedrooms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateRealEstate(tt.p, testMaxLimit)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "kenya", Normalize("  KENYA "))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "acme", Normalize("Acme"))
}

func TestValidateAnalytics(t *testing.T) {
	spec, err := ValidateAnalytics(Params{Country: " Kenya ", Metric: " AVERAGE "}, testMaxLimit)
	require.NoError(t, err)
	assert.Equal(t, MetricAverage, spec.Metric)
	assert.Equal(t, "kenya", spec.Country)
	assert.Zero(t, spec.Limit, "aggregations ignore limit")

	// Limit, even nonsense, plays no part in analytics validation.
	_, err = ValidateAnalytics(Params{Metric: "count", Limit: "nonsense"}, testMaxLimit)
	assert.NoError(t, err)
}

func TestValidateAnalyticsRejects(t *testing.T) {
	var verr *ValidationError

	_, err := ValidateAnalytics(Params{}, testMaxLimit)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "metric", verr.Field)

	_, err = ValidateAnalytics(Params{Metric: "median"}, testMaxLimit)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "metric", verr.Field)

	_, err = ValidateAnalytics(Params{Metric: "count", DateFrom: "2024-02-01", DateTo: "2024-01-01"}, testMaxLimit)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date_from", verr.Field)
}
