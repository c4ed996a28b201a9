// Package query validates raw query parameters into normalized immutable
// specs, fingerprints them for cache keys, and builds the predicate
// pipelines the repository filters records with. Everything here is pure;
// no I/O happens before validation passes.
package query

import "fmt"

// Params are raw query parameters as they arrive from the transport, all
// strings, all optional at this layer. Validation decides what is required.
type Params struct {
	Provider    string
	Country     string
	Region      string
	DateFrom    string
	DateTo      string
	Limit       string
	MinPrice    string
	MaxPrice    string
	MinBedrooms string
	MaxBedrooms string
	Metric      string
}

// Spec is the validated, normalized core of a query. Text fields are
// trimmed and lower-cased so equal queries fingerprint equally regardless
// of client spelling. Immutable once built.
type Spec struct {
	Provider string
	Country  string
	Region   string
	DateFrom string
	DateTo   string
	Limit    int
}

// PriceSpec is a validated price-listing query.
type PriceSpec struct {
	Spec
	MinPrice *float64
	MaxPrice *float64
}

// RealEstateSpec is a validated real-estate listing query.
type RealEstateSpec struct {
	Spec
	MinBedrooms *int
	MaxBedrooms *int
}

// AnalyticsSpec is a validated aggregation query. Limit does not apply to
// aggregations and stays zero.
type AnalyticsSpec struct {
	Spec
	Metric Metric
}

// Metric names an aggregation.
type Metric string

const (
	MetricAverage Metric = "average"
	MetricTotal   Metric = "total"
	MetricCount   Metric = "count"
)

// ValidationError reports a malformed or inconsistent query parameter.
// The caller's input is at fault; retrying the same request cannot help.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}
