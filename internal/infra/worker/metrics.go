package worker

import (
	"job-digest/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// worker-specific metrics for cron run tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_cron_runs_total: Total aggregation runs by status
//   - worker_cron_run_duration_seconds: Duration histogram of run execution
//   - worker_cron_sources_fetched_total: Total sources fetched across runs
//   - worker_cron_last_success_timestamp: Unix timestamp of last successful run
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// CronRunsTotal counts the total number of aggregation runs.
	// Labels: status (success, partial, failure)
	CronRunsTotal *prometheus.CounterVec

	// CronRunDurationSeconds measures the duration of run execution.
	// Buckets cover the typical fan-out over a handful of job boards.
	CronRunDurationSeconds prometheus.Histogram

	// CronSourcesFetchedTotal counts sources fetched across all runs.
	CronSourcesFetchedTotal prometheus.Counter

	// CronLastSuccessTimestamp records the Unix timestamp of the last
	// successful run.
	CronLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics
// initialized and registered via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_runs_total",
			Help: "Total number of aggregation runs by status (success/partial/failure)",
		}, []string{"status"}),

		CronRunDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_run_duration_seconds",
			Help:    "Duration of aggregation run execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800}, // 1s, 5s, 30s, 1m, 5m, 15m, 30m
		}),

		CronSourcesFetchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_sources_fetched_total",
			Help: "Total number of sources fetched across all runs",
		}),

		CronLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_last_success_timestamp",
			Help: "Unix timestamp of the last successful aggregation run",
		}),
	}
}

// MustRegister is a no-op method for API compatibility.
// Metrics are automatically registered via promauto when created in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordRun increments the run counter for the given status.
// Status should be "success", "partial", or "failure".
func (m *WorkerMetrics) RecordRun(status string) {
	m.CronRunsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration observes the duration of an aggregation run in seconds.
func (m *WorkerMetrics) RecordRunDuration(seconds float64) {
	m.CronRunDurationSeconds.Observe(seconds)
}

// RecordSourcesFetched adds the number of sources fetched in this run to the
// total counter.
func (m *WorkerMetrics) RecordSourcesFetched(count int) {
	m.CronSourcesFetchedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful run
// completion.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronLastSuccessTimestamp.SetToCurrentTime()
}
