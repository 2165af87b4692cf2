// Package metrics defines the Prometheus collectors for the search engine
// and exposes the HTTP scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
	AutocompleteTotal  prometheus.Counter

	DocsIndexedTotal    prometheus.Counter
	IndexAddFailures    *prometheus.CounterVec
	TermCount           prometheus.Gauge
	DocCount            prometheus.Gauge
	BarrelLoadsTotal    *prometheus.CounterVec
	BarrelRewritesTotal prometheus.Counter
	BarrelsQuarantined  prometheus.Gauge

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by mode and outcome (hit, zero_result, error).",
			},
			[]string{"mode", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		AutocompleteTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autocomplete_requests_total",
				Help: "Total autocomplete requests.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents added to the index.",
			},
		),
		IndexAddFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_add_failures_total",
				Help: "Failed document additions by reason (duplicate, io, invalid).",
			},
			[]string{"reason"},
		),
		TermCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lexicon_terms",
				Help: "Number of terms in the lexicon.",
			},
		),
		DocCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_documents",
				Help: "Number of documents in the index.",
			},
		),
		BarrelLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barrel_loads_total",
				Help: "Barrel file loads by status (ok, retried, failed).",
			},
			[]string{"status"},
		),
		BarrelRewritesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "barrel_rewrites_total",
				Help: "Atomic barrel rewrites performed by incremental merges.",
			},
		),
		BarrelsQuarantined: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "barrels_quarantined",
				Help: "Barrels currently refusing to serve due to detected corruption.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total query-cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total query-cache misses.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.AutocompleteTotal,
		m.DocsIndexedTotal,
		m.IndexAddFailures,
		m.TermCount,
		m.DocCount,
		m.BarrelLoadsTotal,
		m.BarrelRewritesTotal,
		m.BarrelsQuarantined,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
