// Package metrics defines the Prometheus collectors of the retrieval engine and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of the engine, registered on a
// private registry so several engines can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	QueriesTotal        *prometheus.CounterVec
	QueryLatency        *prometheus.HistogramVec
	QueryResults        *prometheus.HistogramVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	DocumentsAdded      *prometheus.CounterVec
	IndexBuildsTotal    *prometheus.CounterVec
	IndexBuildDuration  *prometheus.HistogramVec
	IndexDocuments      *prometheus.GaugeVec
	IndexTokens         *prometheus.GaugeVec
	JobsTotal           *prometheus.CounterVec
	JobsRunning         prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vsr_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vsr_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vsr_queries_total",
				Help: "Total queries by kind (and, or, ranked, phrase, context) and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vsr_query_latency_seconds",
				Help:    "Query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"kind"},
		),
		QueryResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vsr_query_results",
				Help:    "Number of documents matched per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vsr_cache_hits_total",
				Help: "Total number of ranked-result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vsr_cache_misses_total",
				Help: "Total number of ranked-result cache misses.",
			},
		),
		DocumentsAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vsr_documents_added_total",
				Help: "Total documents added to a staging corpus.",
			},
			[]string{"index"},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vsr_index_builds_total",
				Help: "Total index builds by index and status.",
			},
			[]string{"index", "status"},
		),
		IndexBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vsr_index_build_duration_seconds",
				Help:    "Time spent building an inverted index.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"index"},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vsr_index_documents",
				Help: "Documents in the live index.",
			},
			[]string{"index"},
		),
		IndexTokens: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vsr_index_tokens",
				Help: "Distinct tokens in the live index.",
			},
			[]string{"index"},
		),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vsr_jobs_total",
				Help: "Finished background jobs by type and status.",
			},
			[]string{"type", "status"},
		),
		JobsRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vsr_jobs_running",
				Help: "Background jobs currently running.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResults,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocumentsAdded,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.IndexDocuments,
		m.IndexTokens,
		m.JobsTotal,
		m.JobsRunning,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ForgetIndex drops the per-index series of a deleted index.
func (m *Metrics) ForgetIndex(index string) {
	m.IndexDocuments.DeleteLabelValues(index)
	m.IndexTokens.DeleteLabelValues(index)
	m.IndexBuildDuration.DeleteLabelValues(index)
	m.DocumentsAdded.DeleteLabelValues(index)
}
