// Package repository defines the persistence contracts for the retention
// store. Any backend (Postgres, SQLite) satisfying JobRepository can serve as
// the store; the pipeline never talks to a database directly.
package repository

import (
	"context"
	"time"

	"job-digest/internal/domain/entity"
)

// FingerprintRecord is the subset of a stored job needed for cross-run
// deduplication: which fingerprints exist and when they were first seen.
type FingerprintRecord struct {
	ID        string
	Source    string
	FetchedAt time.Time
}

// UpsertResult reports how a batch commit landed.
type UpsertResult struct {
	Inserted int64 // fingerprints not previously in storage
	Updated  int64 // re-appearances of stored fingerprints
}

// JobQuery contains optional filters for querying the stored working set.
// Restricting to new jobs is expressed through Since: callers pass the start
// of whichever lookback window they need.
type JobQuery struct {
	Since  time.Time // only jobs fetched at or after this instant
	Source string    // optional: restrict to one source
	Limit  int       // 0 means no limit
}

// StoreStats summarizes the stored working set for downstream consumers.
type StoreStats struct {
	TotalJobs      int64            `json:"total_jobs"`
	NewJobsLast24h int64            `json:"new_jobs_last_24h"`
	BySource       map[string]int64 `json:"by_source"`
	LastUpdated    time.Time        `json:"last_updated"`
}

// JobRepository is the retention store boundary.
//
// UpsertBatch is the pipeline's single atomic commit point: either the whole
// batch lands or nothing does. Implementations must preserve fetched_at for
// fingerprints that already exist (is_new is derived from it) and refresh
// mutable fields according to the configured update policy.
type JobRepository interface {
	// UpsertBatch commits the run's accepted jobs in one transaction.
	UpsertBatch(ctx context.Context, jobs []*entity.Job) (UpsertResult, error)

	// Query returns stored jobs matching q, newest posted first.
	Query(ctx context.Context, q JobQuery) ([]*entity.Job, error)

	// ListFingerprints returns the dedup view of all stored records.
	ListFingerprints(ctx context.Context) (map[string]FingerprintRecord, error)

	// PurgeExpired removes records whose fetched_at is older than
	// now minus window, returning the number removed. Idempotent.
	PurgeExpired(ctx context.Context, now time.Time, window time.Duration) (int64, error)

	// Stats reports totals, per-source counts and the new-job count for
	// the given lookback window.
	Stats(ctx context.Context, now time.Time, newWindow time.Duration) (*StoreStats, error)
}
