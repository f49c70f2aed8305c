package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-digest/internal/usecase/aggregate"
)

const googleJobsHTML = `<!DOCTYPE html>
<html><body>
  <div class="iFjolb">
    <div class="BjJfJf">Sales Manager</div>
    <div class="vNEEBe">Acme Corp</div>
    <div class="Qk80Jf">Berlin, Germany</div>
    <div class="Qk80Jf">via LinkedIn</div>
  </div>
  <div class="iFjolb">
    <div class="BjJfJf">Account Executive</div>
    <div class="vNEEBe">Globex</div>
    <div class="Qk80Jf">Remote</div>
  </div>
  <div class="iFjolb">
    <div class="vNEEBe">Card Without Title</div>
  </div>
</body></html>`

func TestGoogleJobsAdapter_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		assert.Contains(t, q, "sales")
		assert.Contains(t, q, "jobs")
		assert.Contains(t, q, "in Germany")

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(googleJobsHTML))
	}))
	defer server.Close()

	adapter := NewGoogleJobsAdapter(server.Client())
	adapter.BaseURL = server.URL

	raws, err := adapter.Fetch(context.Background(), aggregate.SearchParams{
		Keywords:  []string{"sales"},
		Locations: []string{"Germany"},
	})

	require.NoError(t, err)
	// The card without a title is skipped.
	require.Len(t, raws, 2)

	assert.Equal(t, "Sales Manager", raws[0].Title)
	assert.Equal(t, "Acme Corp", raws[0].Company)
	// Only the first annotation is the location; "via ..." is ignored.
	assert.Equal(t, "Berlin, Germany", raws[0].Location)
	assert.Empty(t, raws[0].NativeID)

	assert.Equal(t, "Account Executive", raws[1].Title)
	assert.Equal(t, "Remote", raws[1].Location)
}

func TestGoogleJobsAdapter_FetchEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>No results.</p></body></html>`))
	}))
	defer server.Close()

	adapter := NewGoogleJobsAdapter(server.Client())
	adapter.BaseURL = server.URL

	raws, err := adapter.Fetch(context.Background(), aggregate.SearchParams{})

	// Structural drift yields an empty set, not an error.
	require.NoError(t, err)
	assert.Empty(t, raws)
}

func TestGoogleJobsAdapter_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewGoogleJobsAdapter(server.Client())
	adapter.BaseURL = server.URL

	_, err := adapter.Fetch(context.Background(), aggregate.SearchParams{})

	assert.Error(t, err)
}
