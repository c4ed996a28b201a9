// Package dataset resolves logical dataset references to physical parquet
// partitions and scans them into typed records. Partitions are published by
// an upstream pipeline; this package only reads them.
package dataset

import (
	"fmt"
	"strings"
)

// Domain names one of the published datasets.
type Domain string

const (
	DomainPrices     Domain = "prices"
	DomainRealEstate Domain = "realestate"
	DomainProviders  Domain = "providers"
)

// descriptor ties a domain to its on-disk directory, the column
// aggregations read, and the columns a valid partition must carry.
type descriptor struct {
	dir          string
	metricColumn string
	required     []string
}

var descriptors = map[Domain]descriptor{
	DomainPrices:     {dir: "prices", metricColumn: "price", required: []string{"provider", "price"}},
	DomainRealEstate: {dir: "realestate", metricColumn: "price", required: []string{"provider", "bedrooms"}},
	DomainProviders:  {dir: "providers", required: []string{"provider"}},
}

// ParseDomain maps a dataset name onto a Domain, rejecting unknown names.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := descriptors[d]; !ok {
		return "", fmt.Errorf("unknown dataset domain %q", s)
	}
	return d, nil
}

// Dir returns the domain's directory name under the dataset root.
func (d Domain) Dir() string { return descriptors[d].dir }

// MetricColumn returns the column aggregations read for this domain, or
// empty when the domain has no numeric metric.
func (d Domain) MetricColumn() string { return descriptors[d].metricColumn }

// Ref identifies what to read: a domain plus optional partition keys.
// Immutable once constructed; hints are ISO dates (YYYY-MM-DD) or empty.
type Ref struct {
	Domain   Domain
	Country  string
	HintFrom string
	HintTo   string
}

// PriceRecord is one row of the prices dataset.
type PriceRecord struct {
	Provider string  `parquet:"provider" json:"provider"`
	Country  string  `parquet:"country" json:"country"`
	Region   string  `parquet:"region" json:"region"`
	Date     string  `parquet:"date" json:"date"`
	Item     string  `parquet:"item" json:"item"`
	Price    float64 `parquet:"price" json:"price"`
	Currency string  `parquet:"currency" json:"currency"`
}

// ListingRecord is one row of the realestate dataset. Price is the asking
// rent in the listing's currency.
type ListingRecord struct {
	Provider string  `parquet:"provider" json:"provider"`
	Country  string  `parquet:"country" json:"country"`
	Region   string  `parquet:"region" json:"region"`
	Date     string  `parquet:"date" json:"date"`
	City     string  `parquet:"city" json:"city"`
	Bedrooms int     `parquet:"bedrooms" json:"bedrooms"`
	Price    float64 `parquet:"price" json:"price"`
}

// ProviderRow is one row of the providers registry dataset.
type ProviderRow struct {
	Provider string `parquet:"provider" json:"provider"`
	Country  string `parquet:"country" json:"country"`
	Region   string `parquet:"region" json:"region"`
	Category string `parquet:"category" json:"category"`
}
