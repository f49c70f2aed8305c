package entity

import "time"

// Digest is one delivery unit: the new jobs found by a run together with
// store totals for the summary footer.
type Digest struct {
	// Date is the run date the digest reports on.
	Date time.Time

	// Jobs holds the new jobs, newest posted first.
	Jobs []*Job

	// TotalStored is the number of jobs currently in the retention store.
	TotalStored int64

	// BySource counts stored jobs per source name.
	BySource map[string]int64
}

// IsEmpty reports whether the digest carries no new jobs. Channels still
// deliver empty digests with a fallback body.
func (d *Digest) IsEmpty() bool {
	return len(d.Jobs) == 0
}
