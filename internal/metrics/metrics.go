// Package metrics holds the service's Prometheus collectors. Everything
// registers on an injected Registerer so tests can use a private registry
// and read counters back without global state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "datalayer"

// Metrics are the instrumentation points of the dataset layer. The scans
// counter is the one tests watch to prove a cached query did not rescan.
type Metrics struct {
	DatasetScans  *prometheus.CounterVec
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	RemoteFetches *prometheus.CounterVec
	ScanDuration  *prometheus.HistogramVec
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DatasetScans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_scans_total",
				Help:      "Physical partition scans performed, by dataset.",
			},
			[]string{"dataset"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Result cache hits, by operation.",
			},
			[]string{"op"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Result cache misses, by operation.",
			},
			[]string{"op"},
		),
		RemoteFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_fetches_total",
				Help:      "Remote partition downloads, by dataset.",
			},
			[]string{"dataset"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Wall time of a full partition scan, by dataset.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"dataset"},
		),
	}
	reg.MustRegister(m.DatasetScans, m.CacheHits, m.CacheMisses, m.RemoteFetches, m.ScanDuration)
	return m
}
