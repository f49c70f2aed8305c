package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-digest/internal/config"
	"job-digest/internal/domain/entity"
	"job-digest/internal/repository"
)

type fakeAdapter struct {
	name string
	raws []entity.RawPosting
	err  error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Fetch(_ context.Context, _ SearchParams) ([]entity.RawPosting, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.raws, nil
}

// memRepo is an in-memory JobRepository keyed by fingerprint that preserves
// fetched_at across re-appearances, like the real backends.
type memRepo struct {
	mu        sync.Mutex
	jobs      map[string]*entity.Job
	upsertErr error
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: make(map[string]*entity.Job)}
}

func (r *memRepo) UpsertBatch(_ context.Context, jobs []*entity.Job) (repository.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return repository.UpsertResult{}, r.upsertErr
	}
	var res repository.UpsertResult
	for _, job := range jobs {
		fp := job.Fingerprint()
		if existing, ok := r.jobs[fp]; ok {
			res.Updated++
			stored := *job
			stored.FetchedAt = existing.FetchedAt
			r.jobs[fp] = &stored
			continue
		}
		res.Inserted++
		stored := *job
		r.jobs[fp] = &stored
	}
	return res, nil
}

func (r *memRepo) Query(_ context.Context, q repository.JobQuery) ([]*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Job
	for _, job := range r.jobs {
		if !q.Since.IsZero() && job.FetchedAt.Before(q.Since) {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) ListFingerprints(_ context.Context) (map[string]repository.FingerprintRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]repository.FingerprintRecord, len(r.jobs))
	for fp, job := range r.jobs {
		out[fp] = repository.FingerprintRecord{ID: job.ID, Source: job.Source, FetchedAt: job.FetchedAt}
	}
	return out, nil
}

func (r *memRepo) PurgeExpired(_ context.Context, now time.Time, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := now.Add(-window)
	var removed int64
	for fp, job := range r.jobs {
		if job.FetchedAt.Before(cutoff) {
			delete(r.jobs, fp)
			removed++
		}
	}
	return removed, nil
}

func (r *memRepo) Stats(_ context.Context, now time.Time, newWindow time.Duration) (*repository.StoreStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &repository.StoreStats{BySource: make(map[string]int64), LastUpdated: now}
	for _, job := range r.jobs {
		stats.TotalJobs++
		stats.BySource[job.Source]++
		if now.Sub(job.FetchedAt) < newWindow {
			stats.NewJobsLast24h++
		}
	}
	return stats, nil
}

func seed(r *memRepo, job *entity.Job) {
	r.jobs[job.Fingerprint()] = job
}

func testCriteria() *config.Criteria {
	c := config.DefaultCriteria()
	return &c
}

func TestService_Run(t *testing.T) {
	t.Parallel()

	raw := func(source, title, company string) entity.RawPosting {
		return entity.RawPosting{Source: source, Title: title, Company: company}
	}

	t.Run("fails fast with no adapters", func(t *testing.T) {
		t.Parallel()
		svc := NewService(newMemRepo(), nil, testCriteria(), nil, DefaultConfig())

		_, err := svc.Run(context.Background())

		assert.ErrorIs(t, err, ErrNoAdapters)
	})

	t.Run("fails when every source fails", func(t *testing.T) {
		t.Parallel()
		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", err: errors.New("boom")},
			&fakeAdapter{name: "remoteok", err: errors.New("boom")},
		}
		svc := NewService(newMemRepo(), adapters, testCriteria(), nil, DefaultConfig())

		_, err := svc.Run(context.Background())

		assert.ErrorIs(t, err, ErrAllSourcesFailed)
	})

	t.Run("single source failure yields partial outcome", func(t *testing.T) {
		t.Parallel()
		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", raws: []entity.RawPosting{raw("remotive", "Sales Manager", "Acme")}},
			&fakeAdapter{name: "remoteok", err: errors.New("503")},
		}
		svc := NewService(newMemRepo(), adapters, testCriteria(), nil, DefaultConfig())

		res, err := svc.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, OutcomePartial, res.Outcome)
		require.Len(t, res.AdapterFailures, 1)
		assert.Equal(t, "remoteok", res.AdapterFailures[0].Source)
		assert.Len(t, res.Jobs, 1)
	})

	t.Run("cross source duplicates collapse to the priority source", func(t *testing.T) {
		t.Parallel()
		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", raws: []entity.RawPosting{raw("remotive", "Sales Manager", "Acme")}},
			&fakeAdapter{name: "remoteok", raws: []entity.RawPosting{raw("remoteok", "SALES MANAGER", "acme")}},
		}
		repo := newMemRepo()
		svc := NewService(repo, adapters, testCriteria(), nil, DefaultConfig())

		res, err := svc.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, OutcomeSuccess, res.Outcome)
		require.Len(t, res.Jobs, 1)
		assert.Equal(t, "remotive", res.Jobs[0].Source)
		assert.Equal(t, 1, res.Run.Duplicates)
		assert.Equal(t, int64(1), res.Run.Inserted)
	})

	t.Run("invalid postings are dropped with reasons", func(t *testing.T) {
		t.Parallel()
		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", raws: []entity.RawPosting{
				raw("remotive", "", "Acme"),
				raw("remotive", "Sales Manager", "Acme"),
			}},
		}
		svc := NewService(newMemRepo(), adapters, testCriteria(), nil, DefaultConfig())

		res, err := svc.Run(context.Background())

		require.NoError(t, err)
		require.Len(t, res.Dropped, 1)
		assert.Equal(t, "remotive", res.Dropped[0].Source)
		assert.Len(t, res.Jobs, 1)
	})

	t.Run("filter criteria narrow the working set", func(t *testing.T) {
		t.Parallel()
		crit := testCriteria()
		crit.FilterDesignations = []string{"manager"}
		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", raws: []entity.RawPosting{
				raw("remotive", "Sales Manager", "Acme"),
				raw("remotive", "Software Engineer", "Acme"),
			}},
		}
		svc := NewService(newMemRepo(), adapters, crit, nil, DefaultConfig())

		res, err := svc.Run(context.Background())

		require.NoError(t, err)
		require.Len(t, res.Jobs, 1)
		assert.Equal(t, "Sales Manager", res.Jobs[0].Title)
		assert.Equal(t, 1, res.Run.FilteredOut)
	})

	t.Run("re-appearance preserves first seen time", func(t *testing.T) {
		t.Parallel()
		now := time.Now().UTC()
		firstSeen := now.Add(-30 * time.Hour)

		repo := newMemRepo()
		seed(repo, &entity.Job{
			ID: "remotive_1", Source: "remotive", Title: "Sales Manager",
			Company: "Acme", FetchedAt: firstSeen, LastSeenAt: firstSeen,
		})

		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", raws: []entity.RawPosting{raw("remotive", "Sales Manager", "Acme")}},
		}
		svc := NewService(repo, adapters, testCriteria(), nil, DefaultConfig())

		res, err := svc.Run(context.Background())

		require.NoError(t, err)
		require.Len(t, res.Jobs, 1)
		assert.Equal(t, firstSeen, res.Jobs[0].FetchedAt)
		// Outside the 24h new window, so not new despite being re-fetched.
		assert.False(t, res.Jobs[0].IsNew)
		assert.Equal(t, int64(1), res.Run.Updated)
		assert.Equal(t, int64(0), res.Run.Inserted)
	})

	t.Run("fresh inserts are flagged new", func(t *testing.T) {
		t.Parallel()
		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", raws: []entity.RawPosting{raw("remotive", "Sales Manager", "Acme")}},
		}
		svc := NewService(newMemRepo(), adapters, testCriteria(), nil, DefaultConfig())

		res, err := svc.Run(context.Background())

		require.NoError(t, err)
		require.Len(t, res.Jobs, 1)
		assert.True(t, res.Jobs[0].IsNew)
		assert.Len(t, res.NewJobs(), 1)
	})

	t.Run("expired records are purged before fetch", func(t *testing.T) {
		t.Parallel()
		now := time.Now().UTC()

		repo := newMemRepo()
		seed(repo, &entity.Job{
			ID: "remotive_old", Source: "remotive", Title: "Stale Role",
			Company: "Gone Inc", FetchedAt: now.Add(-72 * time.Hour),
		})

		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", raws: []entity.RawPosting{raw("remotive", "Sales Manager", "Acme")}},
		}
		svc := NewService(repo, adapters, testCriteria(), nil, DefaultConfig())

		res, err := svc.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Run.Purged)
		require.Len(t, res.Jobs, 1)
		assert.Equal(t, "Sales Manager", res.Jobs[0].Title)
	})

	t.Run("storage failure aborts the run", func(t *testing.T) {
		t.Parallel()
		repo := newMemRepo()
		repo.upsertErr = errors.New("connection reset")

		adapters := []SourceAdapter{
			&fakeAdapter{name: "remotive", raws: []entity.RawPosting{raw("remotive", "Sales Manager", "Acme")}},
		}
		svc := NewService(repo, adapters, testCriteria(), nil, DefaultConfig())

		_, err := svc.Run(context.Background())

		var serr *StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "upsert", serr.Op)
	})
}

type fakeDescFetcher struct {
	byURL map[string]string
}

func (f *fakeDescFetcher) FetchDescription(_ context.Context, url string) (string, error) {
	text, ok := f.byURL[url]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

func TestService_DescriptionEnrichment(t *testing.T) {
	t.Parallel()

	crit := testCriteria()
	crit.SearchKeywords = []string{"CRM"}

	adapters := []SourceAdapter{
		&fakeAdapter{name: "remotive", raws: []entity.RawPosting{
			{Source: "remotive", Title: "Sales Manager", Company: "Acme", URL: "https://example.com/j/1"},
		}},
	}
	fetcher := &fakeDescFetcher{byURL: map[string]string{
		"https://example.com/j/1": "You will own our CRM rollout.",
	}}

	svc := NewService(newMemRepo(), adapters, crit, fetcher, DefaultConfig())

	res, err := svc.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	// The keyword only exists in the fetched description.
	assert.Equal(t, []string{"CRM"}, res.Jobs[0].Keywords)
}
