package fetcher

import "errors"

// Sentinel errors for description fetching. Callers treat all of them as
// non-fatal: a posting without a fetched description still flows through the
// pipeline.
var (
	// ErrInvalidURL indicates the posting URL is malformed or uses an
	// unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP indicates the URL resolves to a private address and was
	// blocked.
	ErrPrivateIP = errors.New("private IP address blocked")

	// ErrTimeout indicates the fetch exceeded the configured timeout.
	ErrTimeout = errors.New("fetch timeout")

	// ErrBodyTooLarge indicates the response exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTooManyRedirects indicates the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrReadabilityFailed indicates no readable text could be extracted.
	ErrReadabilityFailed = errors.New("readability extraction failed")
)
