// Package metrics provides Prometheus metrics for the medications catalog.
// HTTP collectors:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Catalog collectors cover batch item outcomes, lookup latency and the store
// pool. All metrics are registered with the default registry in init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (client IPs currently tracked)",
		},
	)

	BatchItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_batch_items_total",
			Help: "Candidates processed by save operations, by terminal outcome",
		},
		[]string{"outcome"},
	)

	LookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rxnav_lookup_duration_seconds",
			Help:    "External drug lookup latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	LookupErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rxnav_lookup_errors_total",
			Help: "Failed external drug lookups",
		},
	)

	CatalogRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_records_total",
			Help: "Medication records currently stored",
		},
	)

	StorePoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_pool_connections",
			Help: "Store connection pool usage",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(BatchItemsTotal)
	prometheus.MustRegister(LookupDuration)
	prometheus.MustRegister(LookupErrors)
	prometheus.MustRegister(CatalogRecords)
	prometheus.MustRegister(StorePoolConns)
}
