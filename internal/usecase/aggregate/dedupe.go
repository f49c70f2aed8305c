package aggregate

import (
	"job-digest/internal/domain/entity"
)

// Deduper collapses postings that share a fingerprint. Fingerprinting itself
// lives on the entity so it can be tested without any storage.
type Deduper struct {
	priority map[string]int // source name -> rank, lower wins
}

// NewDeduper creates a Deduper with the given source priority order. The
// order defaults to adapter registration order; a source missing from the
// list ranks after all listed ones.
func NewDeduper(sourcePriority []string) *Deduper {
	prio := make(map[string]int, len(sourcePriority))
	for i, name := range sourcePriority {
		if _, ok := prio[name]; !ok {
			prio[name] = i
		}
	}
	return &Deduper{priority: prio}
}

// Dedupe returns jobs with at most one entry per fingerprint, preserving the
// input order of the surviving entries. When fingerprints collide the higher
// priority source wins; on a priority tie the earlier posted date wins, with
// an unknown (zero) date losing to a known one.
func (d *Deduper) Dedupe(jobs []*entity.Job) []*entity.Job {
	if len(jobs) <= 1 {
		return jobs
	}

	best := make(map[string]*entity.Job, len(jobs))
	order := make([]string, 0, len(jobs))

	for _, job := range jobs {
		fp := job.Fingerprint()
		current, seen := best[fp]
		if !seen {
			best[fp] = job
			order = append(order, fp)
			continue
		}
		if d.wins(job, current) {
			best[fp] = job
		}
	}

	out := make([]*entity.Job, 0, len(order))
	for _, fp := range order {
		out = append(out, best[fp])
	}
	return out
}

// wins reports whether challenger should replace incumbent for the same
// fingerprint.
func (d *Deduper) wins(challenger, incumbent *entity.Job) bool {
	cr, ir := d.rank(challenger.Source), d.rank(incumbent.Source)
	if cr != ir {
		return cr < ir
	}
	// Priority tie: earliest known posted date wins.
	if incumbent.PostedAt.IsZero() {
		return !challenger.PostedAt.IsZero()
	}
	if challenger.PostedAt.IsZero() {
		return false
	}
	return challenger.PostedAt.Before(incumbent.PostedAt)
}

func (d *Deduper) rank(source string) int {
	if r, ok := d.priority[source]; ok {
		return r
	}
	return len(d.priority)
}
