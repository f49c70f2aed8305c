package db

import (
	"database/sql"
	"fmt"
)

const createJobsPostgres = `
CREATE TABLE IF NOT EXISTS jobs (
    fingerprint  TEXT PRIMARY KEY,
    id           TEXT NOT NULL,
    source       TEXT NOT NULL,
    title        TEXT NOT NULL,
    company      TEXT NOT NULL,
    location     TEXT NOT NULL,
    url          TEXT NOT NULL,
    posted_at    TIMESTAMPTZ,
    keywords     TEXT[] NOT NULL DEFAULT '{}',
    fetched_at   TIMESTAMPTZ NOT NULL,
    last_seen_at TIMESTAMPTZ NOT NULL
)`

const createJobsSQLite = `
CREATE TABLE IF NOT EXISTS jobs (
    fingerprint  TEXT PRIMARY KEY,
    id           TEXT NOT NULL,
    source       TEXT NOT NULL,
    title        TEXT NOT NULL,
    company      TEXT NOT NULL,
    location     TEXT NOT NULL,
    url          TEXT NOT NULL,
    posted_at    TIMESTAMP,
    keywords     TEXT NOT NULL DEFAULT '',
    fetched_at   TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
)`

// MigrateUp creates the jobs table and its indexes for the given driver.
// All statements are idempotent so the migration runs on every startup.
func MigrateUp(db *sql.DB, driver string) error {
	createTable := createJobsPostgres
	if driver == DriverSQLite {
		createTable = createJobsSQLite
	}

	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("MigrateUp: jobs table: %w", err)
	}

	indexes := []string{
		// Retention purge and lookback queries scan by fetched_at.
		`CREATE INDEX IF NOT EXISTS idx_jobs_fetched_at ON jobs(fetched_at)`,
		// Per-source queries and stats grouping.
		`CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source)`,
		// Digest ordering, newest posted first.
		`CREATE INDEX IF NOT EXISTS idx_jobs_posted_at ON jobs(posted_at DESC)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("MigrateUp: index: %w", err)
		}
	}

	return nil
}

// MigrateDown drops the jobs table.
// Use with caution: this deletes all stored postings.
func MigrateDown(db *sql.DB) error {
	if _, err := db.Exec(`DROP TABLE IF EXISTS jobs`); err != nil {
		return fmt.Errorf("MigrateDown: %w", err)
	}
	return nil
}
