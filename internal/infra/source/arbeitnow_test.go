package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-digest/internal/usecase/aggregate"
)

func TestArbeitnowAdapter_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		var body string
		switch page {
		case "1":
			body = fmt.Sprintf(`{
				"data": [
					{"slug": "sales-manager-berlin", "title": "Sales Manager",
					 "company_name": "Acme GmbH", "location": "Berlin", "remote": false,
					 "url": "https://arbeitnow.com/jobs/sales-manager-berlin",
					 "created_at": %d, "description": "B2B sales."}
				],
				"links": {"next": "?page=2"}
			}`, time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC).Unix())
		case "2":
			body = `{
				"data": [
					{"slug": "account-exec-remote", "title": "Account Executive",
					 "company_name": "Globex", "location": "", "remote": true,
					 "url": "https://arbeitnow.com/jobs/account-exec-remote",
					 "created_at": 0, "description": ""}
				],
				"links": {"next": ""}
			}`
		default:
			t.Errorf("unexpected page %q", page)
			body = `{"data": [], "links": {"next": ""}}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	adapter := NewArbeitnowAdapter(server.Client())
	adapter.BaseURL = server.URL

	raws, err := adapter.Fetch(context.Background(), aggregate.SearchParams{})

	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, "sales-manager-berlin", raws[0].NativeID)
	assert.Equal(t, "Berlin", raws[0].Location)
	assert.Equal(t, time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC), raws[0].PostedAt)

	// Remote postings without a location get the "Remote" label.
	assert.Equal(t, "Remote", raws[1].Location)
	assert.True(t, raws[1].PostedAt.IsZero())
}

func TestArbeitnowAdapter_FetchStopsAtMaxPages(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		// Always advertise a next page.
		_, _ = w.Write([]byte(`{"data": [], "links": {"next": "?page=99"}}`))
	}))
	defer server.Close()

	adapter := NewArbeitnowAdapter(server.Client())
	adapter.BaseURL = server.URL

	_, err := adapter.Fetch(context.Background(), aggregate.SearchParams{})

	require.NoError(t, err)
	assert.Equal(t, arbeitnowMaxPages, requests)
}

func TestArbeitnowAdapter_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewArbeitnowAdapter(server.Client())
	adapter.BaseURL = server.URL

	_, err := adapter.Fetch(context.Background(), aggregate.SearchParams{})

	assert.Error(t, err)
}
