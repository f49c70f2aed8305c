// Package sqlite provides SQLite implementations of repository interfaces.
// It mirrors the PostgreSQL store for single-node deployments that do not
// want to run a database server.
package sqlite

import (
	"strings"

	"job-digest/internal/repository"
)

// JobQueryBuilder builds WHERE clauses for job queries in SQLite.
// SQLite-specific: uses ? placeholders.
type JobQueryBuilder struct{}

// NewJobQueryBuilder creates a new query builder instance.
func NewJobQueryBuilder() *JobQueryBuilder {
	return &JobQueryBuilder{}
}

// BuildWhereClause builds the WHERE clause and arguments for a job query.
// Returns an empty string when the query carries no conditions.
func (qb *JobQueryBuilder) BuildWhereClause(q repository.JobQuery) (clause string, args []interface{}) {
	var conditions []string

	if !q.Since.IsZero() {
		conditions = append(conditions, "fetched_at >= ?")
		args = append(args, q.Since)
	}

	if q.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, q.Source)
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
