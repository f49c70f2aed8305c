// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"fmt"
	"strings"

	"job-digest/internal/repository"
)

// JobQueryBuilder builds WHERE clauses for job queries in PostgreSQL.
// This builder is shared between SELECT and COUNT queries to eliminate
// duplication. It uses PostgreSQL numbered placeholders ($1, $2, etc.).
type JobQueryBuilder struct{}

// NewJobQueryBuilder creates a new query builder instance.
func NewJobQueryBuilder() *JobQueryBuilder {
	return &JobQueryBuilder{}
}

// BuildWhereClause builds the WHERE clause and arguments for a job query.
// Returns an empty string when the query carries no conditions.
func (qb *JobQueryBuilder) BuildWhereClause(q repository.JobQuery) (clause string, args []interface{}) {
	var conditions []string
	paramIndex := 1

	if !q.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("fetched_at >= $%d", paramIndex))
		args = append(args, q.Since)
		paramIndex++
	}

	if q.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", paramIndex))
		args = append(args, q.Source)
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
