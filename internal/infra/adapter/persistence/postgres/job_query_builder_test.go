package postgres

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"job-digest/internal/repository"
)

func TestJobQueryBuilder_BuildWhereClause(t *testing.T) {
	qb := NewJobQueryBuilder()
	since := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      repository.JobQuery
		wantClause string
		wantArgs   []interface{}
	}{
		{
			name:       "no conditions",
			query:      repository.JobQuery{},
			wantClause: "",
			wantArgs:   nil,
		},
		{
			name:       "since only",
			query:      repository.JobQuery{Since: since},
			wantClause: "WHERE fetched_at >= $1",
			wantArgs:   []interface{}{since},
		},
		{
			name:       "source only",
			query:      repository.JobQuery{Source: "remotive"},
			wantClause: "WHERE source = $1",
			wantArgs:   []interface{}{"remotive"},
		},
		{
			name:       "since and source",
			query:      repository.JobQuery{Since: since, Source: "remoteok"},
			wantClause: "WHERE fetched_at >= $1 AND source = $2",
			wantArgs:   []interface{}{since, "remoteok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args := qb.BuildWhereClause(tt.query)

			if clause != tt.wantClause {
				t.Errorf("clause=%q want=%q", clause, tt.wantClause)
			}
			if diff := cmp.Diff(tt.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
