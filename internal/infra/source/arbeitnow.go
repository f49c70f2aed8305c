package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"job-digest/internal/domain/entity"
	"job-digest/internal/resilience/circuitbreaker"
	"job-digest/internal/resilience/retry"
	"job-digest/internal/usecase/aggregate"
)

const (
	arbeitnowDefaultBaseURL = "https://www.arbeitnow.com/api/job-board-api"
	arbeitnowMaxPages       = 5
)

// ArbeitnowAdapter fetches postings from the Arbeitnow job board API.
// The API paginates; fetching stops after arbeitnowMaxPages pages or when the
// API reports no next page.
type ArbeitnowAdapter struct {
	// BaseURL is the API endpoint. Overridable for tests.
	BaseURL string

	pc *protectedClient
}

// NewArbeitnowAdapter creates an Arbeitnow adapter with the given HTTP client.
func NewArbeitnowAdapter(client *http.Client) *ArbeitnowAdapter {
	return &ArbeitnowAdapter{
		BaseURL: arbeitnowDefaultBaseURL,
		pc: newProtectedClient("arbeitnow", client,
			circuitbreaker.SourceFetchConfig(), retry.SourceFetchConfig()),
	}
}

// Name implements aggregate.SourceAdapter.
func (a *ArbeitnowAdapter) Name() string { return "arbeitnow" }

type arbeitnowResponse struct {
	Data  []arbeitnowJob `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

type arbeitnowJob struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	Remote      bool   `json:"remote"`
	URL         string `json:"url"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"` // unix seconds
}

// Fetch retrieves up to arbeitnowMaxPages pages of postings.
func (a *ArbeitnowAdapter) Fetch(ctx context.Context, _ aggregate.SearchParams) ([]entity.RawPosting, error) {
	var raws []entity.RawPosting

	for page := 1; page <= arbeitnowMaxPages; page++ {
		var resp arbeitnowResponse
		url := fmt.Sprintf("%s?page=%d", a.BaseURL, page)
		if err := a.pc.getJSON(ctx, url, &resp); err != nil {
			return nil, fmt.Errorf("arbeitnow page %d: %w", page, err)
		}

		for _, job := range resp.Data {
			location := job.Location
			if location == "" && job.Remote {
				location = "Remote"
			}

			var postedAt time.Time
			if job.CreatedAt > 0 {
				postedAt = time.Unix(job.CreatedAt, 0).UTC()
			}

			raws = append(raws, entity.RawPosting{
				NativeID:    job.Slug,
				Title:       job.Title,
				Company:     job.CompanyName,
				Location:    location,
				Description: job.Description,
				URL:         job.URL,
				PostedAt:    postedAt,
			})
		}

		if resp.Links.Next == "" {
			break
		}
	}
	return raws, nil
}
