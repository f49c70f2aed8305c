// Package notifier provides delivery mechanisms for job digests.
// It defines the Notifier interface which allows different delivery
// mechanisms (email, no-op) to be used interchangeably through dependency
// injection.
package notifier

import (
	"context"

	"job-digest/internal/domain/entity"
)

// Notifier is an interface for delivering a job digest.
// Implementations should handle rate limiting, retries, and error logging internally.
type Notifier interface {
	// NotifyDigest delivers the digest produced by an aggregation run.
	//
	// Implementations should:
	//   - Generate a unique request ID for tracing
	//   - Apply rate limiting
	//   - Retry transient failures with exponential backoff
	//   - Respect context cancellation
	NotifyDigest(ctx context.Context, digest *entity.Digest) error
}
