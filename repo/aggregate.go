package repo

import (
	"context"
	"sort"

	"github.com/afridata/datalayer/dataset"
	"github.com/afridata/datalayer/query"
)

// AggregationResult is one provider group's computed metric.
type AggregationResult struct {
	Metric      query.Metric `json:"metric"`
	GroupKey    string       `json:"group_key"`
	Value       float64      `json:"value"`
	SampleCount int          `json:"sample_count"`
}

// AggregateProviderMetrics groups price rows matching spec's common
// filters by provider and computes the requested metric per group. Limit
// does not apply; every matching row counts. Groups come back sorted by
// provider name ascending, ties keeping first-occurrence order from the
// scan.
func (r *Repository) AggregateProviderMetrics(ctx context.Context, spec query.AnalyticsSpec) ([]AggregationResult, error) {
	ref := refForSpec(dataset.DomainPrices, spec.Spec)
	fp := fingerprint("provider_summary", ref, spec.FingerprintPairs())
	return cachedQuery(ctx, r, "provider_summary", fp, func(ctx context.Context) ([]AggregationResult, error) {
		paths, err := r.loc.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		// Counting rows needs no metric column; average and total do.
		if spec.Metric != query.MetricCount {
			if err := dataset.RequireColumn(ref.Domain, paths, ref.Domain.MetricColumn()); err != nil {
				return nil, err
			}
		}

		pipe := query.Pipeline[dataset.PriceRecord]{
			query.TextEquals(func(rec dataset.PriceRecord) string { return rec.Provider }, spec.Provider),
			query.TextEquals(func(rec dataset.PriceRecord) string { return rec.Country }, spec.Country),
			query.TextEquals(func(rec dataset.PriceRecord) string { return rec.Region }, spec.Region),
			query.DateBetween(func(rec dataset.PriceRecord) string { return rec.Date }, spec.DateFrom, spec.DateTo),
		}
		rows, err := scanPaths(r, ref.Domain, paths, pipe.Matches, 0)
		if err != nil {
			return nil, err
		}
		return groupByProvider(rows, spec.Metric), nil
	})
}

type providerGroup struct {
	sum float64
	n   int
}

func groupByProvider(rows []dataset.PriceRecord, metric query.Metric) []AggregationResult {
	groups := map[string]*providerGroup{}
	order := []string{}
	for _, row := range rows {
		g, ok := groups[row.Provider]
		if !ok {
			g = &providerGroup{}
			groups[row.Provider] = g
			order = append(order, row.Provider)
		}
		g.sum += row.Price
		g.n++
	}

	out := make([]AggregationResult, 0, len(order))
	for _, name := range order {
		g := groups[name]
		var value float64
		switch metric {
		case query.MetricAverage:
			value = g.sum / float64(g.n)
		case query.MetricTotal:
			value = g.sum
		case query.MetricCount:
			value = float64(g.n)
		}
		out = append(out, AggregationResult{Metric: metric, GroupKey: name, Value: value, SampleCount: g.n})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GroupKey < out[j].GroupKey })
	return out
}

// distinctProviders collapses rows to their unique provider names, sorted
// ascending.
func distinctProviders(rows []dataset.ProviderRow) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, row := range rows {
		if _, ok := seen[row.Provider]; ok {
			continue
		}
		seen[row.Provider] = struct{}{}
		out = append(out, row.Provider)
	}
	sort.Strings(out)
	return out
}
