package metrics

import (
	"time"
)

// RecordSourceFetch records a completed fetch against one source.
func RecordSourceFetch(source string, duration time.Duration, count int) {
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	if count > 0 {
		PostingsFetchedTotal.WithLabelValues(source).Add(float64(count))
	}
}

// RecordSourceFetchError records an error during a source fetch.
// ErrorType should describe the failure class (e.g., "fetch_failed", "timeout").
func RecordSourceFetchError(source, errorType string) {
	SourceFetchErrors.WithLabelValues(source, errorType).Inc()
}

// RecordPostingDropped records a posting rejected during normalization.
func RecordPostingDropped(source string) {
	PostingsDroppedTotal.WithLabelValues(source).Inc()
}

// RecordJobsCommitted records the outcome of a batch commit.
func RecordJobsCommitted(inserted, updated int64) {
	if inserted > 0 {
		JobsInsertedTotal.Add(float64(inserted))
	}
	if updated > 0 {
		JobsUpdatedTotal.Add(float64(updated))
	}
}

// RecordJobsPurged records jobs removed by retention cleanup.
func RecordJobsPurged(count int64) {
	if count > 0 {
		JobsPurgedTotal.Add(float64(count))
	}
}

// UpdateJobsStored updates the gauge of jobs currently in the retention store.
// This should be refreshed after each pipeline run.
func UpdateJobsStored(count int64) {
	JobsStored.Set(float64(count))
}

// RecordAggregationRun records one pipeline run by outcome and duration.
// Outcome should be "success", "partial", or "fatal".
func RecordAggregationRun(outcome string, duration time.Duration) {
	AggregationRunsTotal.WithLabelValues(outcome).Inc()
	AggregationRunDuration.Observe(duration.Seconds())
}

// RecordDescriptionFetchSuccess records a successful description enrichment.
func RecordDescriptionFetchSuccess(duration time.Duration) {
	DescriptionFetchAttemptsTotal.WithLabelValues("success").Inc()
	DescriptionFetchDuration.Observe(duration.Seconds())
}

// RecordDescriptionFetchFailed records a failed description enrichment.
func RecordDescriptionFetchFailed(duration time.Duration) {
	DescriptionFetchAttemptsTotal.WithLabelValues("failure").Inc()
	DescriptionFetchDuration.Observe(duration.Seconds())
}

// RecordDigestNotification records a digest delivery attempt.
// Status should be either "success" or "failure".
func RecordDigestNotification(channel string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	DigestNotificationsTotal.WithLabelValues(channel, status).Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "upsert_jobs", "purge_expired").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
