// Package metrics defines the Prometheus metric collectors used by the search
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
	FallbacksTotal     *prometheus.CounterVec
	SuggestionsTotal   *prometheus.CounterVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	EmbeddingFailuresTotal prometheus.Counter
	EmbeddingCacheTotal    *prometheus.CounterVec

	IndexRebuildsTotal    *prometheus.CounterVec
	IndexRebuildDuration  prometheus.Histogram
	IndexDocuments        prometheus.Gauge
	IndexTerms            prometheus.Gauge
	IndexGeneration       prometheus.Gauge
	SessionStaleDiscarded prometheus.Counter

	CircuitBreakerState *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg. Tests pass
// a fresh prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		gatherer: prometheus.DefaultGatherer,
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
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by pipeline mode and outcome (results, no_results, error).",
			},
			[]string{"mode", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_fallbacks_total",
				Help: "Searches answered by the field scorer, by reason (error, panic, timeout).",
			},
			[]string{"reason"},
		),
		SuggestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_suggestions_total",
				Help: "Suggestions offered after empty result sets, by vocabulary.",
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		EmbeddingFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "embedding_failures_total",
				Help: "Searches whose similarity scores were zeroed after a vector failure.",
			},
		),
		EmbeddingCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "embedding_cache_total",
				Help: "Vector cache lookups by result (hit, miss).",
			},
			[]string{"result"},
		),
		IndexRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_rebuilds_total",
				Help: "Total index rebuilds by status (success, failed).",
			},
			[]string{"status"},
		),
		IndexRebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_rebuild_duration_seconds",
				Help:    "Time to fetch the corpus and build a new index.",
				Buckets: prometheus.DefBuckets,
			},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Documents in the current index.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Distinct terms in the current index.",
			},
		),
		IndexGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_generation",
				Help: "Generation number of the current index.",
			},
		),
		SessionStaleDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "session_stale_results_discarded_total",
				Help: "Search responses dropped because a newer query superseded them.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.FallbacksTotal,
		m.SuggestionsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.EmbeddingFailuresTotal,
		m.EmbeddingCacheTotal,
		m.IndexRebuildsTotal,
		m.IndexRebuildDuration,
		m.IndexDocuments,
		m.IndexTerms,
		m.IndexGeneration,
		m.SessionStaleDiscarded,
		m.CircuitBreakerState,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Handler serves the registry the collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
