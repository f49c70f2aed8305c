package aggregate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-digest/internal/domain/entity"
)

func TestNormalizer_Normalize(t *testing.T) {
	t.Parallel()

	fetchedAt := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	t.Run("missing title drops the posting", func(t *testing.T) {
		t.Parallel()
		n := NewNormalizer(nil)

		_, err := n.Normalize(entity.RawPosting{
			Source:  "remotive",
			Title:   "   ",
			Company: "Acme",
		}, fetchedAt)

		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrValidationFailed))

		var verr *entity.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "title", verr.Field)
		assert.Equal(t, "remotive", verr.Source)
	})

	t.Run("missing company and location get sentinel", func(t *testing.T) {
		t.Parallel()
		n := NewNormalizer(nil)

		job, err := n.Normalize(entity.RawPosting{
			Source: "remoteok",
			Title:  "Sales Manager",
		}, fetchedAt)

		require.NoError(t, err)
		assert.Equal(t, entity.NotSpecified, job.Company)
		assert.Equal(t, entity.NotSpecified, job.Location)
	})

	t.Run("whitespace is collapsed and trimmed", func(t *testing.T) {
		t.Parallel()
		n := NewNormalizer(nil)

		job, err := n.Normalize(entity.RawPosting{
			Source:  "remotive",
			Title:   "  Senior   Account\tExecutive ",
			Company: " Globex  Corp ",
			URL:     " https://example.com/j/1 ",
		}, fetchedAt)

		require.NoError(t, err)
		assert.Equal(t, "Senior Account Executive", job.Title)
		assert.Equal(t, "Globex Corp", job.Company)
		assert.Equal(t, "https://example.com/j/1", job.URL)
	})

	t.Run("fetch time is recorded on the job", func(t *testing.T) {
		t.Parallel()
		n := NewNormalizer(nil)

		job, err := n.Normalize(entity.RawPosting{Source: "remotive", Title: "SDR"}, fetchedAt)

		require.NoError(t, err)
		assert.Equal(t, fetchedAt, job.FetchedAt)
		assert.Equal(t, fetchedAt, job.LastSeenAt)
	})
}

func TestNormalizer_parsePostedAt(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)
	fetchedAt := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	t.Run("adapter-provided time wins", func(t *testing.T) {
		t.Parallel()
		posted := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

		job, err := n.Normalize(entity.RawPosting{
			Source:   "arbeitnow",
			Title:    "Account Manager",
			Posted:   "ignored text",
			PostedAt: posted,
		}, fetchedAt)

		require.NoError(t, err)
		assert.Equal(t, posted, job.PostedAt)
	})

	t.Run("text date is parsed leniently", func(t *testing.T) {
		t.Parallel()

		job, err := n.Normalize(entity.RawPosting{
			Source: "remotive",
			Title:  "Account Manager",
			Posted: "2026-03-08T15:04:05Z",
		}, fetchedAt)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 8, 15, 4, 5, 0, time.UTC), job.PostedAt)
	})

	t.Run("garbage date stays zero", func(t *testing.T) {
		t.Parallel()

		job, err := n.Normalize(entity.RawPosting{
			Source: "remotive",
			Title:  "Account Manager",
			Posted: "soonish",
		}, fetchedAt)

		require.NoError(t, err)
		assert.True(t, job.PostedAt.IsZero())
	})
}

func TestNormalizer_extractKeywords(t *testing.T) {
	t.Parallel()

	fetchedAt := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		keywords    []string
		title       string
		description string
		want        []string
	}{
		{
			name:     "matches are case insensitive",
			keywords: []string{"Sales", "CRM"},
			title:    "Enterprise SALES Lead",
			want:     []string{"Sales"},
		},
		{
			name:        "description is searched too",
			keywords:    []string{"Salesforce", "HubSpot"},
			title:       "Account Executive",
			description: "Experience with hubspot required.",
			want:        []string{"HubSpot"},
		},
		{
			name:     "configured order is preserved",
			keywords: []string{"Manager", "Account"},
			title:    "Account Manager",
			want:     []string{"Manager", "Account"},
		},
		{
			name:     "no keywords configured yields none",
			keywords: nil,
			title:    "Account Manager",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n := NewNormalizer(tt.keywords)

			job, err := n.Normalize(entity.RawPosting{
				Source:      "remotive",
				Title:       tt.title,
				Description: tt.description,
			}, fetchedAt)

			require.NoError(t, err)
			assert.Equal(t, tt.want, job.Keywords)
		})
	}
}
