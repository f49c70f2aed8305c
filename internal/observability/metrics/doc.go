// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Pipeline metrics (fetches, drops, commits, purges, runs)
//   - Digest notification metrics
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "job-digest/internal/observability/metrics"
//
//	func fetchSource(name string) {
//	    start := time.Now()
//	    // ... fetch postings ...
//	    count := 10
//
//	    metrics.RecordSourceFetch(name, time.Since(start), count)
//	}
package metrics
