package notify

import (
	"context"

	"job-digest/internal/domain/entity"
	"job-digest/internal/infra/notifier"
)

// EmailChannel implements the Channel interface for SMTP digest delivery.
// It wraps the EmailNotifier from the infrastructure layer to provide the
// Channel abstraction for the dispatch service.
type EmailChannel struct {
	notifier notifier.Notifier
	enabled  bool
}

// NewEmailChannel creates a new email channel with the specified configuration.
//
// If email delivery is disabled (config.Enabled = false), a NoOpNotifier is
// used instead so the Channel interface contract is always satisfied.
func NewEmailChannel(config notifier.EmailConfig) *EmailChannel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewEmailNotifier(config)
	} else {
		n = notifier.NewNoOpNotifier()
	}

	return &EmailChannel{
		notifier: n,
		enabled:  config.Enabled,
	}
}

// Name returns the channel identifier "email".
func (c *EmailChannel) Name() string {
	return "email"
}

// IsEnabled returns whether email delivery is enabled via configuration.
func (c *EmailChannel) IsEnabled() bool {
	return c.enabled
}

// Send delivers the digest by email. The underlying notifier handles rate
// limiting, retries, and timeouts.
func (c *EmailChannel) Send(ctx context.Context, digest *entity.Digest) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if digest == nil {
		return ErrInvalidDigest
	}
	return c.notifier.NotifyDigest(ctx, digest)
}
