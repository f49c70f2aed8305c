// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)
)

// Business metrics track the aggregation pipeline
var (
	// JobsStored tracks the current number of jobs in the retention store
	JobsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_stored",
			Help: "Current number of jobs in the retention store",
		},
	)

	// PostingsFetchedTotal counts raw postings fetched from each source
	PostingsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postings_fetched_total",
			Help: "Total number of raw postings fetched from sources",
		},
		[]string{"source"},
	)

	// PostingsDroppedTotal counts postings rejected during normalization
	PostingsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postings_dropped_total",
			Help: "Total number of postings dropped during normalization",
		},
		[]string{"source"},
	)

	// SourceFetchDuration measures time to fetch one source
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Time taken to fetch postings from a source",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source"},
	)

	// SourceFetchErrors counts errors during source fetching
	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Total number of source fetch errors",
		},
		[]string{"source", "error_type"},
	)

	// JobsInsertedTotal counts newly stored fingerprints
	JobsInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_inserted_total",
			Help: "Total number of jobs inserted into the retention store",
		},
	)

	// JobsUpdatedTotal counts re-appearances of stored fingerprints
	JobsUpdatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_updated_total",
			Help: "Total number of stored jobs refreshed by re-appearance",
		},
	)

	// JobsPurgedTotal counts jobs removed by retention cleanup
	JobsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jobs_purged_total",
			Help: "Total number of jobs removed by retention cleanup",
		},
	)

	// AggregationRunsTotal counts pipeline runs by outcome
	AggregationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregation_runs_total",
			Help: "Total number of aggregation runs",
		},
		[]string{"outcome"}, // outcome: success, partial, fatal
	)

	// AggregationRunDuration measures end-to-end pipeline run time
	AggregationRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregation_run_duration_seconds",
			Help:    "End-to-end duration of an aggregation run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// DescriptionFetchAttemptsTotal counts description enrichment attempts
	DescriptionFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "description_fetch_attempts_total",
			Help: "Total number of description enrichment attempts",
		},
		[]string{"result"}, // result: success, failure
	)

	// DescriptionFetchDuration measures time to fetch a posting description
	DescriptionFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "description_fetch_duration_seconds",
			Help:    "Time taken to fetch a posting description",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// DigestNotificationsTotal counts digest deliveries by channel and status
	DigestNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_notifications_total",
			Help: "Total number of digest notification attempts",
		},
		[]string{"channel", "status"},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}
