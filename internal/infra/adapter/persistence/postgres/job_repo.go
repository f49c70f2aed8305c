package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"job-digest/internal/config"
	"job-digest/internal/domain/entity"
	"job-digest/internal/observability/metrics"
	"job-digest/internal/repository"
)

// JobRepo is the PostgreSQL retention store. The jobs table is keyed by the
// dedup fingerprint, so a re-fetched posting lands on its existing row and
// keeps its fetched_at.
type JobRepo struct {
	db           *sql.DB
	policy       config.UpdatePolicy
	queryBuilder *JobQueryBuilder
}

// NewJobRepo creates a PostgreSQL-backed JobRepository with the given update
// policy for re-appearing fingerprints.
func NewJobRepo(db *sql.DB, policy config.UpdatePolicy) repository.JobRepository {
	return &JobRepo{
		db:           db,
		policy:       policy,
		queryBuilder: NewJobQueryBuilder(),
	}
}

// (xmax = 0) distinguishes a fresh insert from a conflict update.
// fetched_at is deliberately absent from the DO UPDATE set: the first
// ingestion time survives re-appearances.
const upsertOverwriteQuery = `
INSERT INTO jobs
       (id, source, title, company, location, url, posted_at, keywords, fingerprint, fetched_at, last_seen_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (fingerprint) DO UPDATE SET
       id           = EXCLUDED.id,
       source       = EXCLUDED.source,
       title        = EXCLUDED.title,
       company      = EXCLUDED.company,
       location     = EXCLUDED.location,
       url          = EXCLUDED.url,
       posted_at    = EXCLUDED.posted_at,
       keywords     = EXCLUDED.keywords,
       last_seen_at = EXCLUDED.last_seen_at
RETURNING (xmax = 0)`

// The fill_gaps variant only replaces fields the stored row is missing.
// $12 is the "not specified" sentinel.
const upsertFillGapsQuery = `
INSERT INTO jobs
       (id, source, title, company, location, url, posted_at, keywords, fingerprint, fetched_at, last_seen_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (fingerprint) DO UPDATE SET
       company      = CASE WHEN jobs.company  = $12 THEN EXCLUDED.company  ELSE jobs.company  END,
       location     = CASE WHEN jobs.location = $12 THEN EXCLUDED.location ELSE jobs.location END,
       posted_at    = COALESCE(jobs.posted_at, EXCLUDED.posted_at),
       keywords     = CASE WHEN cardinality(jobs.keywords) = 0 THEN EXCLUDED.keywords ELSE jobs.keywords END,
       last_seen_at = EXCLUDED.last_seen_at
RETURNING (xmax = 0)`

// UpsertBatch commits the batch in a single transaction. Any failure rolls
// the whole batch back.
func (repo *JobRepo) UpsertBatch(ctx context.Context, jobs []*entity.Job) (repository.UpsertResult, error) {
	var res repository.UpsertResult
	if len(jobs) == 0 {
		return res, nil
	}

	start := time.Now()
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("UpsertBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := upsertOverwriteQuery
	fillGaps := repo.policy == config.UpdateFillGaps
	if fillGaps {
		query = upsertFillGapsQuery
	}

	for _, job := range jobs {
		args := []interface{}{
			job.ID, job.Source, job.Title, job.Company, job.Location, job.URL,
			nullTime(job.PostedAt), pq.Array(job.Keywords), job.Fingerprint(),
			job.FetchedAt, job.LastSeenAt,
		}
		if fillGaps {
			args = append(args, entity.NotSpecified)
		}

		var inserted bool
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&inserted); err != nil {
			return repository.UpsertResult{}, fmt.Errorf("UpsertBatch: upsert %s: %w", job.ID, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return repository.UpsertResult{}, fmt.Errorf("UpsertBatch: commit: %w", err)
	}
	metrics.RecordDBQuery("upsert_jobs", time.Since(start))
	return res, nil
}

// Query returns stored jobs matching q, newest posted first with undated jobs
// last.
func (repo *JobRepo) Query(ctx context.Context, q repository.JobQuery) ([]*entity.Job, error) {
	whereClause, args := repo.queryBuilder.BuildWhereClause(q)

	query := fmt.Sprintf(`
SELECT id, source, title, company, location, url, posted_at, keywords, fetched_at, last_seen_at
FROM jobs
%s
ORDER BY posted_at DESC NULLS LAST, fetched_at DESC`, whereClause)

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, q.Limit)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*entity.Job, 0, 100)
	for rows.Next() {
		var job entity.Job
		var postedAt sql.NullTime
		var keywords pq.StringArray
		if err := rows.Scan(&job.ID, &job.Source, &job.Title, &job.Company,
			&job.Location, &job.URL, &postedAt, &keywords,
			&job.FetchedAt, &job.LastSeenAt); err != nil {
			return nil, fmt.Errorf("Query: Scan: %w", err)
		}
		if postedAt.Valid {
			job.PostedAt = postedAt.Time
		}
		job.Keywords = []string(keywords)
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// ListFingerprints returns the dedup view of all stored records.
func (repo *JobRepo) ListFingerprints(ctx context.Context) (map[string]repository.FingerprintRecord, error) {
	const query = `SELECT fingerprint, id, source, fetched_at FROM jobs`

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListFingerprints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]repository.FingerprintRecord)
	for rows.Next() {
		var fp string
		var rec repository.FingerprintRecord
		if err := rows.Scan(&fp, &rec.ID, &rec.Source, &rec.FetchedAt); err != nil {
			return nil, fmt.Errorf("ListFingerprints: Scan: %w", err)
		}
		result[fp] = rec
	}
	return result, rows.Err()
}

// PurgeExpired removes records first seen before now minus window.
func (repo *JobRepo) PurgeExpired(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	const query = `DELETE FROM jobs WHERE fetched_at < $1`

	start := time.Now()
	res, err := repo.db.ExecContext(ctx, query, now.Add(-window))
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: RowsAffected: %w", err)
	}
	metrics.RecordDBQuery("purge_expired", time.Since(start))
	return removed, nil
}

// Stats reports totals, per-source counts and the new-job count for the
// given lookback window.
func (repo *JobRepo) Stats(ctx context.Context, now time.Time, newWindow time.Duration) (*repository.StoreStats, error) {
	const totalsQuery = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE fetched_at >= $1),
       MAX(last_seen_at)
FROM jobs`

	stats := &repository.StoreStats{BySource: make(map[string]int64)}

	var lastSeen sql.NullTime
	err := repo.db.QueryRowContext(ctx, totalsQuery, now.Add(-newWindow)).
		Scan(&stats.TotalJobs, &stats.NewJobsLast24h, &lastSeen)
	if err != nil {
		return nil, fmt.Errorf("Stats: totals: %w", err)
	}
	if lastSeen.Valid {
		stats.LastUpdated = lastSeen.Time
	}

	const bySourceQuery = `SELECT source, COUNT(*) FROM jobs GROUP BY source`
	rows, err := repo.db.QueryContext(ctx, bySourceQuery)
	if err != nil {
		return nil, fmt.Errorf("Stats: by source: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("Stats: Scan: %w", err)
		}
		stats.BySource[source] = count
	}
	return stats, rows.Err()
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
