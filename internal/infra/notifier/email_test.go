package notifier

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"job-digest/internal/domain/entity"
)

func testEmailConfig() EmailConfig {
	return EmailConfig{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     587,
		Username: "digest@example.com",
		Password: "secret",
		From:     "digest@example.com",
		To:       []string{"alice@example.com", "bob@example.com"},
		Timeout:  5 * time.Second,
	}
}

func testDigest() *entity.Digest {
	posted := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	return &entity.Digest{
		Date: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
		Jobs: []*entity.Job{
			{
				ID: "remotive_1", Source: "remotive", Title: "Sales Manager <EMEA>",
				Company: "Acme & Co", Location: "Remote", URL: "https://example.com/1",
				PostedAt: posted,
			},
			{
				ID: "remoteok_2", Source: "remoteok", Title: "Account Executive",
				Company: "Globex", Location: "Berlin",
			},
		},
		TotalStored: 12,
		BySource:    map[string]int64{"remotive": 8},
	}
}

func TestEmailNotifier_NotifyDigest_SendsMessage(t *testing.T) {
	notifier := NewEmailNotifier(testEmailConfig())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	notifier.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := notifier.NotifyDigest(context.Background(), testDigest()); err != nil {
		t.Fatalf("NotifyDigest err=%v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr=%q", gotAddr)
	}
	if gotFrom != "digest@example.com" {
		t.Errorf("from=%q", gotFrom)
	}
	if len(gotTo) != 2 {
		t.Fatalf("recipients=%v", gotTo)
	}

	msg := string(gotMsg)
	for _, want := range []string{
		"Subject: Job Digest 2026-03-10: 2 new roles",
		"To: alice@example.com, bob@example.com",
		"Content-Type: text/html",
		"Sales Manager &lt;EMEA&gt;",
		"Acme &amp; Co",
		`href="https://example.com/1"`,
		"2026-03-09",
		"12 jobs in store",
		"remotive: 8",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestEmailNotifier_EmptyDigestFallback(t *testing.T) {
	notifier := NewEmailNotifier(testEmailConfig())

	var gotMsg []byte
	notifier.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	digest := &entity.Digest{Date: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC), TotalStored: 5}
	if err := notifier.NotifyDigest(context.Background(), digest); err != nil {
		t.Fatalf("NotifyDigest err=%v", err)
	}

	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Job Digest 2026-03-10: no new roles") {
		t.Errorf("subject missing fallback, got:\n%s", msg)
	}
	if !strings.Contains(msg, "No new roles matched your criteria today.") {
		t.Error("body missing fallback text")
	}
	if strings.Contains(msg, "<table") {
		t.Error("empty digest should not render a table")
	}
}

func TestEmailNotifier_RetriesTransientFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("retry backoff sleeps")
	}

	notifier := NewEmailNotifier(testEmailConfig())

	var attempts atomic.Int32
	notifier.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if attempts.Add(1) == 1 {
			return errors.New("421 service not available")
		}
		return nil
	}

	if err := notifier.NotifyDigest(context.Background(), testDigest()); err != nil {
		t.Fatalf("NotifyDigest err=%v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts=%d want 2", got)
	}
}

func TestEmailNotifier_PermanentFailureDoesNotRetry(t *testing.T) {
	notifier := NewEmailNotifier(testEmailConfig())

	var attempts atomic.Int32
	notifier.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		attempts.Add(1)
		return errors.New("550 mailbox unavailable")
	}

	err := notifier.NotifyDigest(context.Background(), testDigest())
	if err == nil {
		t.Fatal("expected error")
	}
	var permanent *PermanentError
	if !errors.As(err, &permanent) {
		t.Fatalf("expected PermanentError, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts=%d want 1", got)
	}
}

func TestClassifySMTPError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantPermanent bool
	}{
		{
			name: "nil",
			err:  nil,
		},
		{
			name:          "4xx reply",
			err:           errors.New("451 try again later"),
			wantTransient: true,
		},
		{
			name:          "5xx reply",
			err:           errors.New("535 authentication failed"),
			wantPermanent: true,
		},
		{
			name: "network error passes through",
			err:  errors.New("dial tcp: connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifySMTPError(tt.err)

			var transient *TransientError
			var permanent *PermanentError
			if errors.As(got, &transient) != tt.wantTransient {
				t.Errorf("transient=%v want %v", !tt.wantTransient, tt.wantTransient)
			}
			if errors.As(got, &permanent) != tt.wantPermanent {
				t.Errorf("permanent=%v want %v", !tt.wantPermanent, tt.wantPermanent)
			}
			if tt.err != nil && got == nil {
				t.Error("error dropped")
			}
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	if !isRetryableError(&TransientError{Code: 421, Message: "busy"}) {
		t.Error("transient errors should be retryable")
	}
	if isRetryableError(&PermanentError{Code: 550, Message: "no such user"}) {
		t.Error("permanent errors should not be retryable")
	}
	if !isRetryableError(errors.New("connection reset")) {
		t.Error("network errors should be retryable")
	}
}
