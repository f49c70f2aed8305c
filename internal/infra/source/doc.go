// Package source provides adapters for fetching job postings from external
// job boards. Each adapter implements aggregate.SourceAdapter and carries its
// own circuit breaker and retry policy, so one flaky board cannot poison the
// others.
//
// Adapters return raw postings only; normalization, deduplication and
// filtering happen downstream in the pipeline.
package source
