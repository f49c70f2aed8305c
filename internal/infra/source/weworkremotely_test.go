package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-digest/internal/usecase/aggregate"
)

const wwrFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>We Work Remotely: All Jobs</title>
    <link>https://weworkremotely.com</link>
    <item>
      <title>Acme Corp: Senior Sales Manager</title>
      <link>https://weworkremotely.com/remote-jobs/acme-corp-senior-sales-manager</link>
      <guid>wwr-12345</guid>
      <description>Lead our outbound motion.</description>
      <pubDate>Sun, 08 Mar 2026 12:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Standalone Listing Without Company</title>
      <link>https://weworkremotely.com/remote-jobs/standalone</link>
      <guid>wwr-67890</guid>
      <description></description>
    </item>
  </channel>
</rss>`

func TestWeWorkRemotelyAdapter_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(wwrFeed))
	}))
	defer server.Close()

	adapter := NewWeWorkRemotelyAdapter(server.Client())
	adapter.FeedURL = server.URL

	raws, err := adapter.Fetch(context.Background(), aggregate.SearchParams{})

	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, "wwr-12345", raws[0].NativeID)
	assert.Equal(t, "Acme Corp", raws[0].Company)
	assert.Equal(t, "Senior Sales Manager", raws[0].Title)
	assert.Equal(t, time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), raws[0].PostedAt)

	// Titles without the "Company: Role" separator are role-only.
	assert.Empty(t, raws[1].Company)
	assert.Equal(t, "Standalone Listing Without Company", raws[1].Title)
	assert.True(t, raws[1].PostedAt.IsZero())
}

func TestWeWorkRemotelyAdapter_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewWeWorkRemotelyAdapter(server.Client())
	adapter.FeedURL = server.URL

	_, err := adapter.Fetch(context.Background(), aggregate.SearchParams{})

	assert.Error(t, err)
}

func TestSplitFeedTitle(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantCompany string
		wantTitle   string
	}{
		{
			name:        "standard company prefix",
			in:          "Acme: Sales Lead",
			wantCompany: "Acme",
			wantTitle:   "Sales Lead",
		},
		{
			name:        "only first separator splits",
			in:          "Acme: Sales Lead: EMEA",
			wantCompany: "Acme",
			wantTitle:   "Sales Lead: EMEA",
		},
		{
			name:      "no separator",
			in:        "Sales Lead",
			wantTitle: "Sales Lead",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			company, title := splitFeedTitle(tt.in)
			assert.Equal(t, tt.wantCompany, company)
			assert.Equal(t, tt.wantTitle, title)
		})
	}
}
