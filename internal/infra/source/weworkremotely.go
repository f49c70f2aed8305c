package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"job-digest/internal/domain/entity"
	"job-digest/internal/resilience/circuitbreaker"
	"job-digest/internal/resilience/retry"
	"job-digest/internal/usecase/aggregate"
)

const weworkremotelyDefaultFeedURL = "https://weworkremotely.com/remote-jobs.rss"

// WeWorkRemotelyAdapter fetches postings from the We Work Remotely RSS feed.
// Feed item titles follow the "Company: Role" convention, which is split to
// recover the company name.
type WeWorkRemotelyAdapter struct {
	// FeedURL is the RSS endpoint. Overridable for tests or to target a
	// category feed.
	FeedURL string

	client *http.Client
	pc     *protectedClient
}

// NewWeWorkRemotelyAdapter creates a We Work Remotely adapter with the given
// HTTP client.
func NewWeWorkRemotelyAdapter(client *http.Client) *WeWorkRemotelyAdapter {
	return &WeWorkRemotelyAdapter{
		FeedURL: weworkremotelyDefaultFeedURL,
		client:  client,
		pc: newProtectedClient("weworkremotely", client,
			circuitbreaker.SourceFetchConfig(), retry.SourceFetchConfig()),
	}
}

// Name implements aggregate.SourceAdapter.
func (a *WeWorkRemotelyAdapter) Name() string { return "weworkremotely" }

// Fetch retrieves and parses the RSS feed.
func (a *WeWorkRemotelyAdapter) Fetch(ctx context.Context, _ aggregate.SearchParams) ([]entity.RawPosting, error) {
	result, err := a.pc.do(ctx, a.FeedURL, func() (interface{}, error) {
		fp := gofeed.NewParser()
		fp.UserAgent = userAgent
		fp.Client = a.client
		return fp.ParseURLWithContext(a.FeedURL, ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("weworkremotely fetch: %w", err)
	}
	feed := result.(*gofeed.Feed)

	raws := make([]entity.RawPosting, 0, len(feed.Items))
	for _, it := range feed.Items {
		company, title := splitFeedTitle(it.Title)
		if title == "" {
			continue
		}

		var postedAt time.Time
		if it.PublishedParsed != nil {
			postedAt = it.PublishedParsed.UTC()
		}

		raws = append(raws, entity.RawPosting{
			NativeID:    it.GUID,
			Title:       title,
			Company:     company,
			Description: it.Description,
			URL:         it.Link,
			PostedAt:    postedAt,
		})
	}
	return raws, nil
}

// splitFeedTitle splits a "Company: Role" feed title. Titles without the
// separator are treated as role-only.
func splitFeedTitle(full string) (company, title string) {
	parts := strings.SplitN(full, ": ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return "", strings.TrimSpace(full)
}
