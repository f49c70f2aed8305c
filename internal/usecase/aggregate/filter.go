package aggregate

import (
	"strings"

	"job-digest/internal/domain/entity"
)

// FilterCriteria holds the inclusion predicates. Within a criterion multiple
// values are ORed; across criteria everything is ANDed. An empty list always
// matches, so zero-value criteria form the identity filter.
type FilterCriteria struct {
	Keywords     []string // at least one must appear in Job.Keywords
	Designations []string // substring match against title
	Fields       []string // category match against title/description
	Locations    []string // substring match against location
}

// Filter applies FilterCriteria to jobs. Matching is pure and
// case-insensitive.
type Filter struct {
	keywords     []string
	designations []string
	fields       []string
	locations    []string
}

// NewFilter creates a Filter with all criterion values lowercased once.
func NewFilter(c FilterCriteria) *Filter {
	return &Filter{
		keywords:     lowerAll(c.Keywords),
		designations: lowerAll(c.Designations),
		fields:       lowerAll(c.Fields),
		locations:    lowerAll(c.Locations),
	}
}

// Matches reports whether the job satisfies every configured criterion.
func (f *Filter) Matches(job *entity.Job) bool {
	return f.matchesKeywords(job) &&
		f.matchesDesignations(job) &&
		f.matchesFields(job) &&
		f.matchesLocations(job)
}

// Apply returns the jobs accepted by Matches, preserving order.
func (f *Filter) Apply(jobs []*entity.Job) []*entity.Job {
	out := make([]*entity.Job, 0, len(jobs))
	for _, job := range jobs {
		if f.Matches(job) {
			out = append(out, job)
		}
	}
	return out
}

func (f *Filter) matchesKeywords(job *entity.Job) bool {
	if len(f.keywords) == 0 {
		return true
	}
	for _, have := range job.Keywords {
		lowered := strings.ToLower(have)
		for _, want := range f.keywords {
			if lowered == want {
				return true
			}
		}
	}
	return false
}

func (f *Filter) matchesDesignations(job *entity.Job) bool {
	if len(f.designations) == 0 {
		return true
	}
	return containsAny(strings.ToLower(job.Title), f.designations)
}

func (f *Filter) matchesFields(job *entity.Job) bool {
	if len(f.fields) == 0 {
		return true
	}
	text := strings.ToLower(job.Title + " " + job.Description)
	return containsAny(text, f.fields)
}

// matchesLocations treats a missing location as the literal "not specified"
// sentinel: such postings pass only when the criterion is empty or explicitly
// admits "not specified" or "remote".
func (f *Filter) matchesLocations(job *entity.Job) bool {
	if len(f.locations) == 0 {
		return true
	}
	loc := strings.ToLower(strings.TrimSpace(job.Location))
	if loc == "" || loc == entity.NotSpecified {
		for _, want := range f.locations {
			if want == entity.NotSpecified || want == "remote" {
				return true
			}
		}
		return false
	}
	return containsAny(loc, f.locations)
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	return out
}
