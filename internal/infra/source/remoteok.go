package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"job-digest/internal/domain/entity"
	"job-digest/internal/resilience/circuitbreaker"
	"job-digest/internal/resilience/retry"
	"job-digest/internal/usecase/aggregate"
)

const remoteokDefaultBaseURL = "https://remoteok.com/api"

// RemoteOKAdapter fetches postings from the RemoteOK public API.
// The API returns one JSON array; the first element is a legal notice rather
// than a job and carries no id, so entries without an id or position are
// skipped.
type RemoteOKAdapter struct {
	// BaseURL is the API endpoint. Overridable for tests.
	BaseURL string

	pc *protectedClient
}

// NewRemoteOKAdapter creates a RemoteOK adapter with the given HTTP client.
func NewRemoteOKAdapter(client *http.Client) *RemoteOKAdapter {
	return &RemoteOKAdapter{
		BaseURL: remoteokDefaultBaseURL,
		pc: newProtectedClient("remoteok", client,
			circuitbreaker.SourceFetchConfig(), retry.SourceFetchConfig()),
	}
}

// Name implements aggregate.SourceAdapter.
func (a *RemoteOKAdapter) Name() string { return "remoteok" }

type remoteokJob struct {
	ID          flexID `json:"id"`
	Position    string `json:"position"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// flexID tolerates the API reporting ids as either numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = flexID(data)
	return nil
}

// Fetch retrieves the full RemoteOK listing. The API has no server-side
// search, so filtering happens downstream.
func (a *RemoteOKAdapter) Fetch(ctx context.Context, _ aggregate.SearchParams) ([]entity.RawPosting, error) {
	var jobs []remoteokJob
	if err := a.pc.getJSON(ctx, a.BaseURL, &jobs); err != nil {
		return nil, fmt.Errorf("remoteok fetch: %w", err)
	}

	raws := make([]entity.RawPosting, 0, len(jobs))
	for _, job := range jobs {
		if job.ID == "" || job.Position == "" {
			continue
		}
		raws = append(raws, entity.RawPosting{
			NativeID:    string(job.ID),
			Title:       job.Position,
			Company:     job.Company,
			Location:    job.Location,
			Description: job.Description,
			URL:         job.URL,
			Posted:      job.Date,
		})
	}
	return raws, nil
}
