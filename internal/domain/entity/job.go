// Package entity defines the core domain entities and validation logic for the
// application. It contains the canonical Job posting, the raw posting shape
// produced by source adapters, and their domain-specific errors.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// NotSpecified is the sentinel value used when a source does not report a
// company or location. It is matchable by filters ("not specified") so that
// postings without a location are not silently lost.
const NotSpecified = "not specified"

// Job is the canonical job posting entity.
// Description is carried through the pipeline for keyword and category
// matching but is not part of the persisted record.
type Job struct {
	ID          string
	Source      string
	Title       string
	Company     string
	Location    string
	URL         string
	Description string
	PostedAt    time.Time // zero if the source did not report a parseable date
	Keywords    []string  // matched search terms, in configured order
	FetchedAt   time.Time // first ingestion time, preserved across re-appearances
	LastSeenAt  time.Time // refreshed on every run that sees the fingerprint
	IsNew       bool      // derived, recomputed per run; never authoritative in storage
}

// RawPosting is the unprocessed output of a source adapter, before
// normalization. NativeID may be empty for sources without stable ids.
type RawPosting struct {
	NativeID    string
	Source      string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Posted      string    // raw date text as reported by the source
	PostedAt    time.Time // set directly when the source reports parsed time
}

// Fingerprint returns the cross-source dedup key for the job: the
// whitespace-collapsed, lowercased (title, company) pair. When the company is
// the NotSpecified sentinel the location is used instead, so two anonymous
// postings in different cities do not collapse into one.
func (j *Job) Fingerprint() string {
	second := j.Company
	if second == "" || strings.EqualFold(second, NotSpecified) {
		second = j.Location
	}
	return canonical(j.Title) + "|" + canonical(second)
}

// DeriveID builds a stable job id from the source and its native id. Sources
// without native ids fall back to a content hash over title, company and URL,
// matching how ids behave for re-fetches of the same posting.
func DeriveID(source, nativeID, title, company, url string) string {
	if nativeID != "" {
		return source + "_" + nativeID
	}
	sum := sha256.Sum256([]byte(title + company + url))
	return source + "_" + hex.EncodeToString(sum[:])[:12]
}

// MarkNew recomputes the IsNew flag relative to now. A job is new while its
// first ingestion lies within the lookback window.
func (j *Job) MarkNew(now time.Time, newWindow time.Duration) {
	j.IsNew = !j.FetchedAt.IsZero() && now.Sub(j.FetchedAt) < newWindow
}

// canonical lowercases s and collapses runs of whitespace to single spaces.
func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
