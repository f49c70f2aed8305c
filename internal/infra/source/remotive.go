package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"job-digest/internal/domain/entity"
	"job-digest/internal/resilience/circuitbreaker"
	"job-digest/internal/resilience/retry"
	"job-digest/internal/usecase/aggregate"
)

const remotiveDefaultBaseURL = "https://remotive.com/api/remote-jobs"

// RemotiveAdapter fetches postings from the Remotive public API.
// The API supports a server-side search term, so one request is issued per
// configured keyword and the results merged by job id.
type RemotiveAdapter struct {
	// BaseURL is the API endpoint. Overridable for tests.
	BaseURL string

	pc *protectedClient
}

// NewRemotiveAdapter creates a Remotive adapter with the given HTTP client.
func NewRemotiveAdapter(client *http.Client) *RemotiveAdapter {
	return &RemotiveAdapter{
		BaseURL: remotiveDefaultBaseURL,
		pc: newProtectedClient("remotive", client,
			circuitbreaker.SourceFetchConfig(), retry.SourceFetchConfig()),
	}
}

// Name implements aggregate.SourceAdapter.
func (a *RemotiveAdapter) Name() string { return "remotive" }

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID              int64  `json:"id"`
	URL             string `json:"url"`
	Title           string `json:"title"`
	CompanyName     string `json:"company_name"`
	Location        string `json:"candidate_required_location"`
	PublicationDate string `json:"publication_date"`
	Description     string `json:"description"`
}

// Fetch retrieves postings for each configured keyword. Without keywords a
// single unfiltered request is made.
func (a *RemotiveAdapter) Fetch(ctx context.Context, params aggregate.SearchParams) ([]entity.RawPosting, error) {
	searches := params.Keywords
	if len(searches) == 0 {
		searches = []string{""}
	}

	seen := make(map[int64]bool)
	var raws []entity.RawPosting
	for _, term := range searches {
		resp, err := a.search(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("remotive search %q: %w", term, err)
		}
		for _, job := range resp.Jobs {
			if seen[job.ID] {
				continue
			}
			seen[job.ID] = true
			raws = append(raws, entity.RawPosting{
				NativeID:    strconv.FormatInt(job.ID, 10),
				Title:       job.Title,
				Company:     job.CompanyName,
				Location:    job.Location,
				Description: job.Description,
				URL:         job.URL,
				Posted:      job.PublicationDate,
			})
		}
	}
	return raws, nil
}

func (a *RemotiveAdapter) search(ctx context.Context, term string) (*remotiveResponse, error) {
	q := url.Values{"limit": {"100"}}
	if term != "" {
		q.Set("search", term)
	}

	var resp remotiveResponse
	if err := a.pc.getJSON(ctx, a.BaseURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
