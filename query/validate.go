package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// ValidatePrices checks and normalizes a price-listing query. It never
// fixes inconsistent input silently; anything off fails with a
// *ValidationError.
func ValidatePrices(p Params, maxLimit int) (PriceSpec, error) {
	spec, err := validateCommon(p, maxLimit, true)
	if err != nil {
		return PriceSpec{}, err
	}
	min, err := parseOptionalFloat("min_price", p.MinPrice)
	if err != nil {
		return PriceSpec{}, err
	}
	max, err := parseOptionalFloat("max_price", p.MaxPrice)
	if err != nil {
		return PriceSpec{}, err
	}
	if min != nil && *min < 0 {
		return PriceSpec{}, &ValidationError{Field: "min_price", Message: "must not be negative"}
	}
	if max != nil && *max < 0 {
		return PriceSpec{}, &ValidationError{Field: "max_price", Message: "must not be negative"}
	}
	if min != nil && max != nil && *min > *max {
		return PriceSpec{}, &ValidationError{Field: "min_price", Message: "must not exceed max_price"}
	}
	return PriceSpec{Spec: spec, MinPrice: min, MaxPrice: max}, nil
}

// ValidateRealEstate checks and normalizes a real-estate listing query.
func ValidateRealEstate(p Params, maxLimit int) (RealEstateSpec, error) {
	spec, err := validateCommon(p, maxLimit, true)
	if err != nil {
		return RealEstateSpec{}, err
	}
	min, err := parseOptionalInt("min_bedrooms", p.MinBedrooms)
	if err != nil {
		return RealEstateSpec{}, err
	}
	max, err := parseOptionalInt("max_bedrooms", p.MaxBedrooms)
	if err != nil {
		return RealEstateSpec{}, err
	}
	if min != nil && *min < 0 {
		return RealEstateSpec{}, &ValidationError{Field: "min_bedrooms", Message: "must not be negative"}
	}
	if max != nil && *max < 0 {
		return RealEstateSpec{}, &ValidationError{Field: "max_bedrooms", Message: "must not be negative"}
	}
	if min != nil && max != nil && *min > *max {
		return RealEstateSpec{}, &ValidationError{Field: "min_bedrooms", Message: "must not exceed max_bedrooms"}
	}
	return RealEstateSpec{Spec: spec, MinBedrooms: min, MaxBedrooms: max}, nil
}

// ValidateAnalytics checks and normalizes an aggregation query. Limit is
// ignored for aggregations; metric is required.
func ValidateAnalytics(p Params, maxLimit int) (AnalyticsSpec, error) {
	spec, err := validateCommon(p, maxLimit, false)
	if err != nil {
		return AnalyticsSpec{}, err
	}
	metric := Metric(Normalize(p.Metric))
	switch metric {
	case MetricAverage, MetricTotal, MetricCount:
	case "":
		return AnalyticsSpec{}, &ValidationError{Field: "metric", Message: "is required"}
	default:
		return AnalyticsSpec{}, &ValidationError{
			Field:   "metric",
			Message: fmt.Sprintf("must be one of %s, %s, %s", MetricAverage, MetricTotal, MetricCount),
		}
	}
	return AnalyticsSpec{Spec: spec, Metric: metric}, nil
}

func validateCommon(p Params, maxLimit int, needLimit bool) (Spec, error) {
	s := Spec{
		Provider: Normalize(p.Provider),
		Country:  Normalize(p.Country),
		Region:   Normalize(p.Region),
	}

	var err error
	if s.DateFrom, err = parseDate("date_from", p.DateFrom); err != nil {
		return Spec{}, err
	}
	if s.DateTo, err = parseDate("date_to", p.DateTo); err != nil {
		return Spec{}, err
	}
	if s.DateFrom != "" && s.DateTo != "" && s.DateFrom > s.DateTo {
		return Spec{}, &ValidationError{Field: "date_from", Message: "must not be after date_to"}
	}

	if !needLimit {
		return s, nil
	}
	if s.Limit, err = parseLimit(p.Limit, maxLimit); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Normalize folds a text filter into canonical form: trimmed,
// lower-cased. Fingerprints see this form; matching itself is
// case-insensitive. Exposed so callers building dataset references apply
// the same rule the validator does.
func Normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func parseDate(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if _, err := time.Parse(isoDate, v); err != nil {
		return "", &ValidationError{Field: field, Message: "must be a YYYY-MM-DD date"}
	}
	return v, nil
}

func parseLimit(v string, maxLimit int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, &ValidationError{Field: "limit", Message: "is required"}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ValidationError{Field: "limit", Message: "must be an integer"}
	}
	if n <= 0 {
		return 0, &ValidationError{Field: "limit", Message: "must be positive"}
	}
	if n > maxLimit {
		return 0, &ValidationError{Field: "limit", Message: fmt.Sprintf("must not exceed %d", maxLimit)}
	}
	return n, nil
}

func parseOptionalFloat(field, v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: "must be a number"}
	}
	return &f, nil
}

func parseOptionalInt(field, v string) (*int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: "must be an integer"}
	}
	return &n, nil
}
