// Package notify dispatches job digests across delivery channels with
// per-channel circuit breaking, a bounded worker pool, and observability.
package notify

import (
	"context"

	"job-digest/internal/domain/entity"
)

// Channel represents a digest delivery channel (email, etc.).
// Each channel implementation handles its own rate limiting, retries, and
// error handling.
//
// Thread Safety:
//   - All methods must be safe for concurrent use by multiple goroutines
//
// Context Handling:
//   - Implementations must respect context cancellation and timeout
type Channel interface {
	// Name returns the channel identifier (lowercase, alphanumeric).
	// This is used for logging, metrics, and health check endpoints.
	Name() string

	// IsEnabled returns true if this channel is enabled via configuration.
	// Disabled channels are skipped during dispatching.
	IsEnabled() bool

	// Send delivers a digest to this channel.
	//
	// Returns:
	//   - ErrChannelDisabled: If Send() called on disabled channel
	//   - ErrInvalidDigest: If digest is nil
	//   - Delivery errors: Wrapped with context
	Send(ctx context.Context, digest *entity.Digest) error
}
