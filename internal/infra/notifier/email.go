package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"job-digest/internal/domain/entity"

	"github.com/google/uuid"
)

// EmailConfig contains configuration for SMTP digest delivery.
type EmailConfig struct {
	// Enabled indicates whether email delivery is enabled
	Enabled bool

	// Host and Port identify the SMTP server. STARTTLS is negotiated when
	// the server advertises it.
	Host string
	Port int

	// Username and Password authenticate with PLAIN auth. Leave Username
	// empty for unauthenticated relays.
	Username string
	Password string

	// From is the sender address, To the recipient list.
	From string
	To   []string

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
}

// sendFunc matches smtp.SendMail and exists so tests can capture the
// outgoing message without a real SMTP server.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier delivers job digests as HTML email over SMTP.
type EmailNotifier struct {
	config      EmailConfig
	rateLimiter *RateLimiter
	send        sendFunc
}

// NewEmailNotifier creates a new EmailNotifier with the specified configuration.
// The rate limiter is set well below typical relay limits since at most one
// digest per run is sent.
func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		config:      config,
		rateLimiter: NewRateLimiter(0.2, 1), // 1 message per 5s, burst of 1
		send:        smtp.SendMail,
	}
}

// subject builds the digest subject line, e.g.
// "Job Digest 2026-03-10: 7 new roles".
func (e *EmailNotifier) subject(digest *entity.Digest) string {
	date := digest.Date.Format("2006-01-02")
	switch n := len(digest.Jobs); n {
	case 0:
		return fmt.Sprintf("Job Digest %s: no new roles", date)
	case 1:
		return fmt.Sprintf("Job Digest %s: 1 new role", date)
	default:
		return fmt.Sprintf("Job Digest %s: %d new roles", date, n)
	}
}

// buildHTMLBody renders the digest as an HTML table. An empty digest gets a
// short fallback body instead of an empty table.
func (e *EmailNotifier) buildHTMLBody(digest *entity.Digest) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")

	if digest.IsEmpty() {
		b.WriteString("<p>No new roles matched your criteria today.</p>\n")
	} else {
		fmt.Fprintf(&b, "<h2>%d new roles</h2>\n", len(digest.Jobs))
		b.WriteString("<table border=\"1\" cellpadding=\"6\" cellspacing=\"0\">\n")
		b.WriteString("<tr><th>Title</th><th>Company</th><th>Location</th><th>Posted</th><th>Source</th></tr>\n")
		for _, job := range digest.Jobs {
			posted := ""
			if !job.PostedAt.IsZero() {
				posted = job.PostedAt.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "<tr><td><a href=%q>%s</a></td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				job.URL, html.EscapeString(job.Title), html.EscapeString(job.Company),
				html.EscapeString(job.Location), posted, html.EscapeString(job.Source))
		}
		b.WriteString("</table>\n")
	}

	fmt.Fprintf(&b, "<p>%d jobs in store", digest.TotalStored)
	if len(digest.BySource) > 0 {
		parts := make([]string, 0, len(digest.BySource))
		for source, count := range digest.BySource {
			parts = append(parts, fmt.Sprintf("%s: %d", html.EscapeString(source), count))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("</p>\n</body></html>\n")
	return b.String()
}

// buildMessage assembles the full RFC 5322 message with headers.
func (e *EmailNotifier) buildMessage(digest *entity.Digest) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.config.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", e.subject(digest))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(e.buildHTMLBody(digest))
	return []byte(b.String())
}

// deliver runs a single SMTP attempt with the configured timeout.
func (e *EmailNotifier) deliver(ctx context.Context, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	var auth smtp.Auth
	if e.config.Username != "" {
		auth = smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	}

	timeout := e.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// smtp.SendMail has no context support, so the attempt runs in a
	// goroutine and is abandoned on timeout.
	done := make(chan error, 1)
	go func() {
		done <- e.send(addr, auth, e.config.From, e.config.To, msg)
	}()

	select {
	case err := <-done:
		return classifySMTPError(err)
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return &TransientError{Message: "smtp delivery timed out"}
	}
}

// deliverWithRetry retries transient failures with linear backoff.
// Permanent SMTP rejections fail immediately.
func (e *EmailNotifier) deliverWithRetry(ctx context.Context, msg []byte) error {
	const (
		maxAttempts = 3
		baseDelay   = 5 * time.Second
	)

	requestID, _ := ctx.Value(requestIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := e.deliver(ctx, msg)
		if err == nil {
			slog.Info("digest email sent",
				slog.String("request_id", requestID),
				slog.Int("recipients", len(e.config.To)),
				slog.Int("attempt", attempt))
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			slog.Error("digest email rejected",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("digest email attempt failed, retrying",
				slog.String("request_id", requestID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	slog.Error("digest email failed after all retries",
		slog.String("request_id", requestID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))

	return fmt.Errorf("email delivery failed after %d attempts: %w", maxAttempts, lastErr)
}

// NotifyDigest sends the digest to all configured recipients.
// This method implements the Notifier interface.
func (e *EmailNotifier) NotifyDigest(ctx context.Context, digest *entity.Digest) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("starting digest email delivery",
		slog.String("request_id", requestID),
		slog.Int("new_jobs", len(digest.Jobs)),
		slog.Int("recipients", len(e.config.To)))

	if err := e.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return e.deliverWithRetry(ctx, e.buildMessage(digest))
}
