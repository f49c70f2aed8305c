// Package aggregate implements the job aggregation pipeline: multi-source
// fetch, normalization, deduplication, filtering, and the atomic commit into
// the retention store. The Service type is the run orchestrator.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"job-digest/internal/config"
	"job-digest/internal/domain/entity"
	"job-digest/internal/observability/metrics"
	"job-digest/internal/repository"
)

// SourceAdapter fetches raw postings from one external job source.
// Implementations apply server-side filtering where the source supports it,
// but the pipeline re-validates everything, so adapters may over-fetch.
type SourceAdapter interface {
	// Name returns the source identifier used in ids, stats, and logs.
	Name() string
	// Fetch retrieves raw postings. A returned error marks this source as
	// failed for the run; it never aborts the run as a whole.
	Fetch(ctx context.Context, params SearchParams) ([]entity.RawPosting, error)
}

// SearchParams are the request hints passed to adapters whose source API
// supports server-side filtering.
type SearchParams struct {
	Keywords  []string
	Locations []string
}

// DescriptionFetcher fetches readable text for postings whose source returned
// no description, so keyword extraction has material to work with. Optional.
type DescriptionFetcher interface {
	FetchDescription(ctx context.Context, url string) (string, error)
}

// Config holds orchestration tuning knobs.
type Config struct {
	Retention         time.Duration // sliding storage window (default 2 days)
	NewWindow         time.Duration // is_new lookback (default 24h)
	FetchTimeout      time.Duration // per-adapter timeout
	EnrichParallelism int           // concurrent description fetches
}

// DefaultConfig returns orchestration defaults matching the documented
// retention policy.
func DefaultConfig() Config {
	return Config{
		Retention:         48 * time.Hour,
		NewWindow:         24 * time.Hour,
		FetchTimeout:      30 * time.Second,
		EnrichParallelism: 5,
	}
}

// Outcome is the tri-state run result callers translate into exit codes.
type Outcome int

const (
	// OutcomeSuccess means every adapter delivered.
	OutcomeSuccess Outcome = iota
	// OutcomePartial means at least one adapter failed but the run completed.
	OutcomePartial
	// OutcomeFatal is never stored in a RunResult; fatal runs return an error.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	default:
		return "fatal"
	}
}

// AdapterFailure records one isolated source failure for the run summary.
type AdapterFailure struct {
	Source string
	Err    string
}

// DroppedPosting records a posting rejected during normalization.
type DroppedPosting struct {
	Source string
	Reason string
}

// RunStats summarizes one orchestration run.
type RunStats struct {
	Sources    int
	Fetched    int
	Dropped    int
	Duplicates int
	FilteredOut int
	Inserted   int64
	Updated    int64
	Purged     int64
	Duration   time.Duration
}

// RunResult is the pipeline output handed to downstream consumers.
type RunResult struct {
	Outcome         Outcome
	Jobs            []*entity.Job // current working set, is_new flags recomputed
	Stats           *repository.StoreStats
	Run             RunStats
	AdapterFailures []AdapterFailure
	Dropped         []DroppedPosting
}

// NewJobs returns the subset of the current working set flagged as new.
func (r *RunResult) NewJobs() []*entity.Job {
	out := make([]*entity.Job, 0, len(r.Jobs))
	for _, j := range r.Jobs {
		if j.IsNew {
			out = append(out, j)
		}
	}
	return out
}

// Service sequences the pipeline: purge -> fetch -> normalize -> dedupe ->
// filter -> commit. All state is run-scoped; nothing is shared between runs
// except the retention store.
type Service struct {
	repo        repository.JobRepository
	adapters    []SourceAdapter
	normalizer  *Normalizer
	deduper     *Deduper
	filter      *Filter
	descFetcher DescriptionFetcher // nil disables enrichment
	params      SearchParams
	cfg         Config
}

// NewService wires the orchestrator from its dependencies. Source priority
// defaults to adapter registration order when the criteria do not set one.
func NewService(
	repo repository.JobRepository,
	adapters []SourceAdapter,
	crit *config.Criteria,
	descFetcher DescriptionFetcher,
	cfg Config,
) *Service {
	priority := crit.SourcePriority
	if len(priority) == 0 {
		priority = make([]string, 0, len(adapters))
		for _, a := range adapters {
			priority = append(priority, a.Name())
		}
	}

	if cfg.Retention <= 0 {
		cfg.Retention = time.Duration(crit.RetentionDays) * 24 * time.Hour
	}
	if cfg.NewWindow <= 0 {
		cfg.NewWindow = time.Duration(crit.NewWindowHours) * time.Hour
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	if cfg.EnrichParallelism <= 0 {
		cfg.EnrichParallelism = DefaultConfig().EnrichParallelism
	}

	return &Service{
		repo:       repo,
		adapters:   adapters,
		normalizer: NewNormalizer(crit.SearchKeywords),
		deduper:    NewDeduper(priority),
		filter: NewFilter(FilterCriteria{
			Keywords:     crit.SearchKeywords,
			Designations: crit.FilterDesignations,
			Fields:       crit.FilterFields,
			Locations:    crit.PreferredLocations,
		}),
		descFetcher: descFetcher,
		params: SearchParams{
			Keywords:  crit.SearchKeywords,
			Locations: crit.PreferredLocations,
		},
		cfg: cfg,
	}
}

// Run executes one aggregation cycle and returns the resulting working set.
//
// Failure semantics: adapter and per-posting failures are aggregated into the
// result; storage failures and an all-sources-failed fetch abort the run with
// an error and leave stored state untouched. The store update at the end is
// the single atomic commit point.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	logger := slog.Default()
	start := time.Now()
	now := start.UTC()

	if len(s.adapters) == 0 {
		return nil, ErrNoAdapters
	}

	purged, err := s.repo.PurgeExpired(ctx, now, s.cfg.Retention)
	if err != nil {
		return nil, &StorageError{Op: "purge", Err: err}
	}
	if purged > 0 {
		logger.Info("purged expired jobs", slog.Int64("removed", purged))
	}
	metrics.RecordJobsPurged(purged)

	raws, failures := s.fetchAll(ctx)
	if len(failures) == len(s.adapters) {
		return nil, fmt.Errorf("%w: %d adapter(s)", ErrAllSourcesFailed, len(failures))
	}

	s.enrichDescriptions(ctx, raws)

	jobs, dropped := s.normalizeAll(raws, now)
	unique := s.deduper.Dedupe(jobs)
	accepted := s.filter.Apply(unique)

	upsert, err := s.repo.UpsertBatch(ctx, accepted)
	if err != nil {
		return nil, &StorageError{Op: "upsert", Err: err}
	}
	metrics.RecordJobsCommitted(upsert.Inserted, upsert.Updated)

	current, err := s.repo.Query(ctx, repository.JobQuery{Since: now.Add(-s.cfg.Retention)})
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	for _, j := range current {
		j.MarkNew(now, s.cfg.NewWindow)
	}

	stats, err := s.repo.Stats(ctx, now, s.cfg.NewWindow)
	if err != nil {
		return nil, &StorageError{Op: "stats", Err: err}
	}
	metrics.UpdateJobsStored(stats.TotalJobs)

	outcome := OutcomeSuccess
	if len(failures) > 0 {
		outcome = OutcomePartial
	}

	result := &RunResult{
		Outcome:         outcome,
		Jobs:            current,
		Stats:           stats,
		AdapterFailures: failures,
		Dropped:         dropped,
		Run: RunStats{
			Sources:     len(s.adapters),
			Fetched:     len(raws),
			Dropped:     len(dropped),
			Duplicates:  len(jobs) - len(unique),
			FilteredOut: len(unique) - len(accepted),
			Inserted:    upsert.Inserted,
			Updated:     upsert.Updated,
			Purged:      purged,
			Duration:    time.Since(start),
		},
	}

	logger.Info("aggregation run completed",
		slog.String("outcome", outcome.String()),
		slog.Int("sources", result.Run.Sources),
		slog.Int("adapter_failures", len(failures)),
		slog.Int("fetched", result.Run.Fetched),
		slog.Int("dropped", result.Run.Dropped),
		slog.Int("duplicates", result.Run.Duplicates),
		slog.Int("filtered_out", result.Run.FilteredOut),
		slog.Int64("inserted", upsert.Inserted),
		slog.Int64("updated", upsert.Updated),
		slog.Int64("purged", purged),
		slog.Duration("duration", result.Run.Duration),
	)

	return result, nil
}

// fetchAll runs every adapter concurrently, each bounded by the per-adapter
// timeout. Results are flattened in registration order so the default dedup
// priority matches the order adapters were wired in.
func (s *Service) fetchAll(ctx context.Context) ([]entity.RawPosting, []AdapterFailure) {
	logger := slog.Default()

	results := make([][]entity.RawPosting, len(s.adapters))
	errs := make([]error, len(s.adapters))

	var eg errgroup.Group
	for i, adapter := range s.adapters {
		eg.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			fetchStart := time.Now()
			raws, err := adapter.Fetch(fetchCtx, s.params)
			duration := time.Since(fetchStart)

			if err != nil {
				errs[i] = &FetchError{Source: adapter.Name(), Err: err}
				metrics.RecordSourceFetchError(adapter.Name(), "fetch_failed")
				logger.Warn("source fetch failed",
					slog.String("source", adapter.Name()),
					slog.Duration("duration", duration),
					slog.Any("error", err))
				return nil
			}

			// Stamp the source name so adapters cannot forget it.
			for j := range raws {
				raws[j].Source = adapter.Name()
			}
			results[i] = raws
			metrics.RecordSourceFetch(adapter.Name(), duration, len(raws))
			logger.Info("source fetch completed",
				slog.String("source", adapter.Name()),
				slog.Int("postings", len(raws)),
				slog.Duration("duration", duration))
			return nil
		})
	}
	_ = eg.Wait() // adapter goroutines never return errors

	var all []entity.RawPosting
	var failures []AdapterFailure
	for i := range s.adapters {
		if errs[i] != nil {
			failures = append(failures, AdapterFailure{
				Source: s.adapters[i].Name(),
				Err:    errs[i].Error(),
			})
			continue
		}
		all = append(all, results[i]...)
	}
	return all, failures
}

// enrichDescriptions fills in missing descriptions by fetching the posting
// URL. Best-effort: failures leave the description empty and are only logged.
func (s *Service) enrichDescriptions(ctx context.Context, raws []entity.RawPosting) {
	if s.descFetcher == nil {
		return
	}

	sem := make(chan struct{}, s.cfg.EnrichParallelism)
	var wg sync.WaitGroup
	for i := range raws {
		if raws[i].Description != "" || raws[i].URL == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text, err := s.descFetcher.FetchDescription(ctx, raws[i].URL)
			if err != nil {
				slog.Debug("description enrichment failed",
					slog.String("source", raws[i].Source),
					slog.String("url", raws[i].URL),
					slog.Any("error", err))
				return
			}
			raws[i].Description = text
		}()
	}
	wg.Wait()
}

// normalizeAll converts raw postings to jobs, recording dropped postings with
// their rejection reason.
func (s *Service) normalizeAll(raws []entity.RawPosting, now time.Time) ([]*entity.Job, []DroppedPosting) {
	jobs := make([]*entity.Job, 0, len(raws))
	var dropped []DroppedPosting
	for _, raw := range raws {
		job, err := s.normalizer.Normalize(raw, now)
		if err != nil {
			dropped = append(dropped, DroppedPosting{Source: raw.Source, Reason: err.Error()})
			metrics.RecordPostingDropped(raw.Source)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, dropped
}
