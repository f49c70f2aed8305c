package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"job-digest/internal/config"
	"job-digest/internal/domain/entity"
	"job-digest/internal/observability/metrics"
	"job-digest/internal/repository"
)

// JobRepo is the SQLite retention store. Keywords are stored as a
// comma-joined string because SQLite has no array type.
type JobRepo struct {
	db           *sql.DB
	policy       config.UpdatePolicy
	queryBuilder *JobQueryBuilder
}

// NewJobRepo creates a SQLite-backed JobRepository with the given update
// policy for re-appearing fingerprints.
func NewJobRepo(db *sql.DB, policy config.UpdatePolicy) repository.JobRepository {
	return &JobRepo{
		db:           db,
		policy:       policy,
		queryBuilder: NewJobQueryBuilder(),
	}
}

// fetched_at is absent from the DO UPDATE set so the first ingestion time
// survives re-appearances.
const upsertOverwriteQuery = `
INSERT INTO jobs
       (id, source, title, company, location, url, posted_at, keywords, fingerprint, fetched_at, last_seen_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET
       id           = excluded.id,
       source       = excluded.source,
       title        = excluded.title,
       company      = excluded.company,
       location     = excluded.location,
       url          = excluded.url,
       posted_at    = excluded.posted_at,
       keywords     = excluded.keywords,
       last_seen_at = excluded.last_seen_at`

// The fill_gaps variant only replaces fields the stored row is missing.
// The trailing two placeholders are the "not specified" sentinel.
const upsertFillGapsQuery = `
INSERT INTO jobs
       (id, source, title, company, location, url, posted_at, keywords, fingerprint, fetched_at, last_seen_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET
       company      = CASE WHEN jobs.company  = ? THEN excluded.company  ELSE jobs.company  END,
       location     = CASE WHEN jobs.location = ? THEN excluded.location ELSE jobs.location END,
       posted_at    = COALESCE(jobs.posted_at, excluded.posted_at),
       keywords     = CASE WHEN jobs.keywords = '' THEN excluded.keywords ELSE jobs.keywords END,
       last_seen_at = excluded.last_seen_at`

// UpsertBatch commits the batch in a single transaction. SQLite cannot
// report insert-vs-update from the upsert itself, so existence is checked
// inside the same transaction first.
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

	const existsQuery = `SELECT EXISTS (SELECT 1 FROM jobs WHERE fingerprint = ?)`
	for _, job := range jobs {
		fingerprint := job.Fingerprint()

		var exists bool
		if err := tx.QueryRowContext(ctx, existsQuery, fingerprint).Scan(&exists); err != nil {
			return repository.UpsertResult{}, fmt.Errorf("UpsertBatch: exists %s: %w", job.ID, err)
		}

		args := []interface{}{
			job.ID, job.Source, job.Title, job.Company, job.Location, job.URL,
			nullTime(job.PostedAt), joinKeywords(job.Keywords), fingerprint,
			job.FetchedAt, job.LastSeenAt,
		}
		if fillGaps {
			args = append(args, entity.NotSpecified, entity.NotSpecified)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return repository.UpsertResult{}, fmt.Errorf("UpsertBatch: upsert %s: %w", job.ID, err)
		}
		if exists {
			res.Updated++
		} else {
			res.Inserted++
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
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Query: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*entity.Job, 0, 100)
	for rows.Next() {
		var job entity.Job
		var postedAt sql.NullTime
		var keywords string
		err := rows.Scan(&job.ID, &job.Source, &job.Title, &job.Company,
			&job.Location, &job.URL, &postedAt, &keywords,
			&job.FetchedAt, &job.LastSeenAt)
		if err != nil {
			return nil, fmt.Errorf("Query: Scan: %w", err)
		}
		if postedAt.Valid {
			job.PostedAt = postedAt.Time
		}
		job.Keywords = splitKeywords(keywords)
		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Query: rows.Err: %w", err)
	}

	return jobs, nil
}

// ListFingerprints returns the dedup view of all stored records.
func (repo *JobRepo) ListFingerprints(ctx context.Context) (map[string]repository.FingerprintRecord, error) {
	const query = `SELECT fingerprint, id, source, fetched_at FROM jobs`

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListFingerprints: QueryContext: %w", err)
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

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListFingerprints: rows.Err: %w", err)
	}

	return result, nil
}

// PurgeExpired removes records first seen before now minus window.
func (repo *JobRepo) PurgeExpired(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	const query = `DELETE FROM jobs WHERE fetched_at < ?`

	start := time.Now()
	res, err := repo.db.ExecContext(ctx, query, now.Add(-window))
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: ExecContext: %w", err)
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
       COALESCE(SUM(CASE WHEN fetched_at >= ? THEN 1 ELSE 0 END), 0),
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

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Stats: rows.Err: %w", err)
	}

	return stats, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func joinKeywords(keywords []string) string {
	return strings.Join(keywords, ",")
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
