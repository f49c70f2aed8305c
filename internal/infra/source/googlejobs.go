package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"job-digest/internal/domain/entity"
	"job-digest/internal/resilience/circuitbreaker"
	"job-digest/internal/resilience/retry"
	"job-digest/internal/usecase/aggregate"
)

const googleJobsDefaultBaseURL = "https://www.google.com/search"

// Google Jobs result card selectors. These track Google's rendered markup and
// break whenever Google reshuffles class names, so the adapter is best-effort:
// an empty result set is not an error.
const (
	googleJobsCardSelector     = ".iFjolb"
	googleJobsTitleSelector    = ".BjJfJf"
	googleJobsCompanySelector  = ".vNEEBe"
	googleJobsLocationSelector = ".Qk80Jf"
)

// GoogleJobsAdapter scrapes the Google Jobs search results page.
// It has no stable API and no per-posting URLs; postings are identified by a
// content hash downstream.
type GoogleJobsAdapter struct {
	// BaseURL is the search endpoint. Overridable for tests.
	BaseURL string

	pc *protectedClient
}

// NewGoogleJobsAdapter creates a Google Jobs adapter with the given HTTP
// client. The web scraper breaker profile is used: failures here are usually
// structural, not transient.
func NewGoogleJobsAdapter(client *http.Client) *GoogleJobsAdapter {
	return &GoogleJobsAdapter{
		BaseURL: googleJobsDefaultBaseURL,
		pc: newProtectedClient("googlejobs", client,
			circuitbreaker.WebScraperConfig(), retry.WebScraperConfig()),
	}
}

// Name implements aggregate.SourceAdapter.
func (a *GoogleJobsAdapter) Name() string { return "googlejobs" }

// Fetch scrapes job cards from the rendered results page for the configured
// keywords and first preferred location.
func (a *GoogleJobsAdapter) Fetch(ctx context.Context, params aggregate.SearchParams) ([]entity.RawPosting, error) {
	searchURL := a.buildURL(params)

	doc, err := a.pc.getDocument(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("googlejobs fetch: %w", err)
	}

	var raws []entity.RawPosting
	doc.Find(googleJobsCardSelector).Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find(googleJobsTitleSelector).Text())
		if title == "" {
			return
		}
		company := strings.TrimSpace(card.Find(googleJobsCompanySelector).Text())
		location := strings.TrimSpace(card.Find(googleJobsLocationSelector).First().Text())

		raws = append(raws, entity.RawPosting{
			Title:    title,
			Company:  company,
			Location: location,
			URL:      searchURL,
		})
	})
	return raws, nil
}

func (a *GoogleJobsAdapter) buildURL(params aggregate.SearchParams) string {
	terms := strings.Join(params.Keywords, " ")
	if terms == "" {
		terms = "jobs"
	} else {
		terms += " jobs"
	}
	if len(params.Locations) > 0 {
		terms += " in " + params.Locations[0]
	}

	q := url.Values{
		"q":   {terms},
		"ibp": {"htl;jobs"},
		"hl":  {"en"},
	}
	return a.BaseURL + "?" + q.Encode()
}
