// Package repo orchestrates query serving: it fingerprints a validated
// query, serves it from the result cache when fresh, and otherwise resolves
// partitions through the locator, scans them through the filter pipeline,
// and caches what it computed. Identical in-flight cold-cache queries
// coalesce into a single scan.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/afridata/datalayer/cache"
	"github.com/afridata/datalayer/dataset"
	"github.com/afridata/datalayer/internal/metrics"
	"github.com/afridata/datalayer/query"
)

// Options carries the repository's collaborators. All fields are required.
type Options struct {
	Locator   *dataset.Locator
	Store     *cache.Store
	ResultTTL time.Duration
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// Repository serves filtered and aggregated views over the partitioned
// datasets. Stateless per request; one instance is shared by all callers.
type Repository struct {
	loc    *dataset.Locator
	store  *cache.Store
	ttl    time.Duration
	met    *metrics.Metrics
	log    zerolog.Logger
	flight singleflight.Group
}

// New builds a Repository from opts.
func New(opts Options) *Repository {
	return &Repository{
		loc:   opts.Locator,
		store: opts.Store,
		ttl:   opts.ResultTTL,
		met:   opts.Metrics,
		log:   opts.Logger,
	}
}

// ListPrices returns price records matching spec, truncated to its limit.
// Filters apply in a fixed order: provider, country, region, date range,
// price range. The scan stops as soon as the limit is reached.
func (r *Repository) ListPrices(ctx context.Context, spec query.PriceSpec) ([]dataset.PriceRecord, error) {
	ref := refForSpec(dataset.DomainPrices, spec.Spec)
	fp := fingerprint("list_prices", ref, spec.FingerprintPairs())
	return cachedQuery(ctx, r, "list_prices", fp, func(ctx context.Context) ([]dataset.PriceRecord, error) {
		pipe := query.Pipeline[dataset.PriceRecord]{
			query.TextEquals(func(rec dataset.PriceRecord) string { return rec.Provider }, spec.Provider),
			query.TextEquals(func(rec dataset.PriceRecord) string { return rec.Country }, spec.Country),
			query.TextEquals(func(rec dataset.PriceRecord) string { return rec.Region }, spec.Region),
			query.DateBetween(func(rec dataset.PriceRecord) string { return rec.Date }, spec.DateFrom, spec.DateTo),
			query.FloatBetween(func(rec dataset.PriceRecord) float64 { return rec.Price }, spec.MinPrice, spec.MaxPrice),
		}
		paths, err := r.loc.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		return scanPaths(r, ref.Domain, paths, pipe.Matches, spec.Limit)
	})
}

// ListRealEstate returns listing records matching spec, with a bedroom
// range in place of the price range.
func (r *Repository) ListRealEstate(ctx context.Context, spec query.RealEstateSpec) ([]dataset.ListingRecord, error) {
	ref := refForSpec(dataset.DomainRealEstate, spec.Spec)
	fp := fingerprint("list_realestate", ref, spec.FingerprintPairs())
	return cachedQuery(ctx, r, "list_realestate", fp, func(ctx context.Context) ([]dataset.ListingRecord, error) {
		pipe := query.Pipeline[dataset.ListingRecord]{
			query.TextEquals(func(rec dataset.ListingRecord) string { return rec.Provider }, spec.Provider),
			query.TextEquals(func(rec dataset.ListingRecord) string { return rec.Country }, spec.Country),
			query.TextEquals(func(rec dataset.ListingRecord) string { return rec.Region }, spec.Region),
			query.DateBetween(func(rec dataset.ListingRecord) string { return rec.Date }, spec.DateFrom, spec.DateTo),
			query.IntBetween(func(rec dataset.ListingRecord) int { return rec.Bedrooms }, spec.MinBedrooms, spec.MaxBedrooms),
		}
		paths, err := r.loc.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		return scanPaths(r, ref.Domain, paths, pipe.Matches, spec.Limit)
	})
}

// ListProviders returns the distinct provider names in ref's dataset,
// sorted ascending. An existing dataset with no matching rows yields an
// empty sequence, not an error.
func (r *Repository) ListProviders(ctx context.Context, ref dataset.Ref) ([]string, error) {
	fp := fingerprint("list_providers", ref, nil)
	return cachedQuery(ctx, r, "list_providers", fp, func(ctx context.Context) ([]string, error) {
		match := query.TextEquals(func(rec dataset.ProviderRow) string { return rec.Country }, ref.Country)
		paths, err := r.loc.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		// A partition without the provider column would decode into blank
		// rows; fail loudly instead.
		if err := dataset.RequireColumn(ref.Domain, paths, "provider"); err != nil {
			return nil, err
		}
		rows, err := scanPaths(r, ref.Domain, paths, match, 0)
		if err != nil {
			return nil, err
		}
		return distinctProviders(rows), nil
	})
}

func refForSpec(d dataset.Domain, s query.Spec) dataset.Ref {
	return dataset.Ref{Domain: d, Country: s.Country, HintFrom: s.DateFrom, HintTo: s.DateTo}
}

// fingerprint extends the spec's canonical pairs with the operation and
// dataset reference so distinct operations over the same filters never
// share a cache key.
func fingerprint(op string, ref dataset.Ref, pairs []query.Pair) string {
	pairs = append(pairs,
		query.Pair{Key: "op", Value: op},
		query.Pair{Key: "dataset", Value: string(ref.Domain)},
		query.Pair{Key: "ref_country", Value: ref.Country},
		query.Pair{Key: "hint_from", Value: ref.HintFrom},
		query.Pair{Key: "hint_to", Value: ref.HintTo},
	)
	return query.Fingerprint(pairs)
}

// cachedQuery serves fp from the result cache when fresh, otherwise runs
// compute once per fingerprint regardless of how many identical requests
// are in flight, caches the result, and returns it. A failed cache write
// only costs the caching; the result still flows back.
func cachedQuery[T any](ctx context.Context, r *Repository, op, fp string, compute func(context.Context) (T, error)) (T, error) {
	if e, ok := r.store.Get(fp); ok {
		var out T
		if json.Unmarshal(e.Payload, &out) == nil {
			r.met.CacheHits.WithLabelValues(op).Inc()
			return out, nil
		}
	}
	r.met.CacheMisses.WithLabelValues(op).Inc()

	v, err, _ := r.flight.Do(fp, func() (any, error) {
		// Every coalesced caller shares this one computation, so it must
		// not die with whichever caller happens to lead the flight.
		out, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if err := r.store.Put(fp, out, r.ttl); err != nil {
			r.log.Warn().Err(err).Str("fingerprint", fp).Msg("caching query result failed")
		}
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// scanPaths runs one instrumented physical scan. The scans counter moves
// exactly once per call, which is what the caching tests observe.
func scanPaths[T any](r *Repository, d dataset.Domain, paths []string, match func(T) bool, limit int) ([]T, error) {
	r.met.DatasetScans.WithLabelValues(string(d)).Inc()
	timer := prometheus.NewTimer(r.met.ScanDuration.WithLabelValues(string(d)))
	defer timer.ObserveDuration()
	return dataset.ScanFiles(d, paths, match, limit)
}
