// Package metrics defines the Prometheus metric collectors used across the
// services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the services.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
	RecommendationsTotal   *prometheus.CounterVec
	RecommendLatency       prometheus.Histogram
	RecommendResultSize    prometheus.Histogram
	TitleSearchesTotal     prometheus.Counter
	MetadataLookupsTotal   *prometheus.CounterVec
	MetadataLatency        prometheus.Histogram
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	ReviewsTotal           *prometheus.CounterVec
	CatalogItems           prometheus.Gauge
	CircuitBreakerState    *prometheus.GaugeVec
	AnalyticsEventsDropped prometheus.Counter
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
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
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RecommendationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommendations_total",
				Help: "Recommendation requests by outcome (ok, not_found, invalid, error).",
			},
			[]string{"outcome"},
		),
		RecommendLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recommend_rank_seconds",
				Help:    "Time spent ranking one similarity row.",
				Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
		),
		RecommendResultSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recommend_results_count",
				Help:    "Number of neighbours returned per recommendation.",
				Buckets: []float64{0, 1, 5, 10, 20, 50},
			},
		),
		TitleSearchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "title_searches_total",
				Help: "Total catalog title substring searches.",
			},
		),
		MetadataLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_lookups_total",
				Help: "External metadata lookups by result (ok, not_found, error).",
			},
			[]string{"result"},
		),
		MetadataLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "metadata_lookup_seconds",
				Help:    "External metadata lookup latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "metadata_cache_hits_total",
				Help: "Total number of metadata cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "metadata_cache_misses_total",
				Help: "Total number of metadata cache misses.",
			},
		),
		ReviewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reviews_total",
				Help: "Review store operations by kind (create, delete).",
			},
			[]string{"op"},
		),
		CatalogItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_items",
				Help: "Number of items in the loaded catalog.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		AnalyticsEventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Analytics events dropped because the buffer was full.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RecommendationsTotal,
		m.RecommendLatency,
		m.RecommendResultSize,
		m.TitleSearchesTotal,
		m.MetadataLookupsTotal,
		m.MetadataLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ReviewsTotal,
		m.CatalogItems,
		m.CircuitBreakerState,
		m.AnalyticsEventsDropped,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
