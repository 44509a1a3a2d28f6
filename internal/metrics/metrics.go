// Package metrics exposes Prometheus collectors for the API, the report
// queries and the report cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_db_query_duration_seconds",
			Help:    "Duration of report queries in seconds, connection setup included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_db_query_errors_total",
			Help: "Total number of failed report queries",
		},
		[]string{"query", "kind"},
	)

	ReportCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_report_cache_lookups_total",
			Help: "Report cache lookups by endpoint and result (hit or miss)",
		},
		[]string{"endpoint", "result"},
	)

	ReportCacheKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lms_report_cache_keys",
			Help: "Number of keys held in the report cache",
		},
	)
)

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route, status string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordDBQuery records a query's duration and, if it failed, the error kind
// ("connection" or "query").
func RecordDBQuery(query string, d time.Duration, errKind string) {
	DBQueryDuration.WithLabelValues(query).Observe(d.Seconds())
	if errKind != "" {
		DBQueryErrors.WithLabelValues(query, errKind).Inc()
	}
}

// RecordCacheLookup counts a hit or a miss for endpoint.
func RecordCacheLookup(endpoint string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ReportCacheLookups.WithLabelValues(endpoint, result).Inc()
}

// SetCacheKeys updates the cache size gauge.
func SetCacheKeys(n int) {
	ReportCacheKeys.Set(float64(n))
}
