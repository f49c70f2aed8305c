package entity

import (
	"testing"
	"time"
)

func TestJob_Fingerprint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		job  Job
		want string
	}{
		{
			name: "title and company lowercased",
			job:  Job{Title: "CRM Manager", Company: "Acme Corp", Location: "Remote"},
			want: "crm manager|acme corp",
		},
		{
			name: "whitespace collapsed",
			job:  Job{Title: "  CRM   Manager ", Company: "Acme\tCorp"},
			want: "crm manager|acme corp",
		},
		{
			name: "missing company falls back to location",
			job:  Job{Title: "CRM Manager", Company: "", Location: "Berlin"},
			want: "crm manager|berlin",
		},
		{
			name: "sentinel company falls back to location",
			job:  Job{Title: "CRM Manager", Company: NotSpecified, Location: "Berlin"},
			want: "crm manager|berlin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.job.Fingerprint(); got != tt.want {
				t.Errorf("Fingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJob_Fingerprint_CollidesAcrossSources(t *testing.T) {
	t.Parallel()

	a := Job{Source: "remotive", Title: "CRM Manager", Company: "Acme Corp"}
	b := Job{Source: "remoteok", Title: "Crm Manager", Company: "ACME CORP"}
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("same real-world job must share a fingerprint: %q vs %q",
			a.Fingerprint(), b.Fingerprint())
	}
}

func TestDeriveID(t *testing.T) {
	t.Parallel()

	if got := DeriveID("remotive", "12345", "t", "c", "u"); got != "remotive_12345" {
		t.Errorf("DeriveID with native id = %q", got)
	}

	hashed := DeriveID("googlejobs", "", "CRM Manager", "Acme", "https://x")
	if len(hashed) != len("googlejobs_")+12 {
		t.Errorf("hash-based id has wrong length: %q", hashed)
	}
	again := DeriveID("googlejobs", "", "CRM Manager", "Acme", "https://x")
	if hashed != again {
		t.Errorf("hash-based id must be deterministic: %q vs %q", hashed, again)
	}
	other := DeriveID("googlejobs", "", "CRM Manager", "Other", "https://x")
	if hashed == other {
		t.Error("different content must not share a hash-based id")
	}
}

func TestJob_MarkNew(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	tests := []struct {
		name      string
		fetchedAt time.Time
		want      bool
	}{
		{"fetched just now", now, true},
		{"fetched 23h ago", now.Add(-23 * time.Hour), true},
		{"fetched exactly at window edge", now.Add(-24 * time.Hour), false},
		{"fetched 2 days ago", now.Add(-48 * time.Hour), false},
		{"zero fetched_at", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			j := Job{FetchedAt: tt.fetchedAt}
			j.MarkNew(now, window)
			if j.IsNew != tt.want {
				t.Errorf("IsNew = %v, want %v", j.IsNew, tt.want)
			}
		})
	}
}
