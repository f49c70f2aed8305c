package aggregate

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"job-digest/internal/domain/entity"
)

// Normalizer cleans raw postings into canonical jobs. It is pure: no I/O, and
// the same raw posting always yields the same job (given the same fetch time).
type Normalizer struct {
	keywords []string // configured search keywords, original casing and order
}

// NewNormalizer creates a Normalizer that extracts the given search keywords.
func NewNormalizer(keywords []string) *Normalizer {
	return &Normalizer{keywords: keywords}
}

// Normalize converts a raw posting into a canonical Job.
// A missing title is a hard validation failure and drops the posting; missing
// company or location default to the "not specified" sentinel. Unparseable
// posted dates are left zero, never fabricated.
func (n *Normalizer) Normalize(raw entity.RawPosting, fetchedAt time.Time) (*entity.Job, error) {
	title := collapseSpace(raw.Title)
	if title == "" {
		return nil, &entity.ValidationError{Source: raw.Source, Field: "title", Reason: "missing"}
	}

	company := collapseSpace(raw.Company)
	if company == "" {
		company = entity.NotSpecified
	}
	location := collapseSpace(raw.Location)
	if location == "" {
		location = entity.NotSpecified
	}

	job := &entity.Job{
		ID:          entity.DeriveID(raw.Source, raw.NativeID, title, company, strings.TrimSpace(raw.URL)),
		Source:      raw.Source,
		Title:       title,
		Company:     company,
		Location:    location,
		URL:         strings.TrimSpace(raw.URL),
		Description: strings.TrimSpace(raw.Description),
		PostedAt:    n.parsePostedAt(raw),
		Keywords:    n.extractKeywords(title, raw.Description),
		FetchedAt:   fetchedAt,
		LastSeenAt:  fetchedAt,
	}
	return job, nil
}

// parsePostedAt returns the adapter-provided time when set, otherwise tries a
// lenient parse of the raw date text. Unrecognizable input yields zero.
func (n *Normalizer) parsePostedAt(raw entity.RawPosting) time.Time {
	if !raw.PostedAt.IsZero() {
		return raw.PostedAt.UTC()
	}
	text := strings.TrimSpace(raw.Posted)
	if text == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(text)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// extractKeywords returns the configured keywords found in the title or
// description, case-insensitively, preserving the configured casing and
// order rather than the discovery order.
func (n *Normalizer) extractKeywords(title, description string) []string {
	if len(n.keywords) == 0 {
		return nil
	}
	haystack := strings.ToLower(title + " " + description)
	var matched []string
	for _, kw := range n.keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// collapseSpace trims s and collapses internal whitespace runs to single
// spaces, preserving case.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
