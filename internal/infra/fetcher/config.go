package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DescriptionFetchConfig holds the configuration for description fetching.
//
// Security settings:
//   - DenyPrivateIPs: Prevents SSRF attacks by blocking private IP addresses
//   - MaxBodySize: Prevents memory exhaustion from oversized responses
//   - MaxRedirects: Prevents infinite redirect loops
//   - Timeout: Prevents resource starvation from slow servers
//
// Feature toggle:
//   - Enabled: Allows the feature to be disabled without code changes
type DescriptionFetchConfig struct {
	// Enabled controls whether description fetching is enabled. When false,
	// postings keep whatever description their source returned.
	// Default: true
	Enabled bool

	// Timeout is the maximum duration for a single HTTP request.
	// Default: 10s
	Timeout time.Duration

	// Parallelism is the maximum number of concurrent description fetches.
	// Default: 5
	Parallelism int

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// Enforced while reading, not from the Content-Length header.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is re-validated against the SSRF rules.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs controls whether to block access to private IPs.
	// Should always be true in production.
	// Default: true
	DenyPrivateIPs bool
}

// DefaultConfig returns the default configuration for description fetching.
func DefaultConfig() DescriptionFetchConfig {
	return DescriptionFetchConfig{
		Enabled:        true,
		Timeout:        10 * time.Second,
		Parallelism:    5,
		MaxBodySize:    10 * 1024 * 1024, // 10MB
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks if the configuration values are valid and safe.
func (c *DescriptionFetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// Unset variables fall back to defaults; invalid values are errors.
//
// Environment variables:
//   - DESCRIPTION_FETCH_ENABLED: "true" or "false" (default: true)
//   - DESCRIPTION_FETCH_TIMEOUT: duration string, e.g., "10s" (default: 10s)
//   - DESCRIPTION_FETCH_PARALLELISM: integer (default: 5)
//   - DESCRIPTION_FETCH_MAX_BODY_SIZE: integer in bytes (default: 10485760)
//   - DESCRIPTION_FETCH_MAX_REDIRECTS: integer (default: 5)
//   - DESCRIPTION_FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
func LoadConfigFromEnv() (DescriptionFetchConfig, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("DESCRIPTION_FETCH_ENABLED"); val != "" {
		cfg.Enabled = val == "true"
	}

	if val := os.Getenv("DESCRIPTION_FETCH_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			cfg.Timeout = parsed
		} else {
			return cfg, fmt.Errorf("invalid DESCRIPTION_FETCH_TIMEOUT: %v (expected format: '10s', '1m')", err)
		}
	}

	if val := os.Getenv("DESCRIPTION_FETCH_PARALLELISM"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.Parallelism = parsed
		} else {
			return cfg, fmt.Errorf("invalid DESCRIPTION_FETCH_PARALLELISM: %v", err)
		}
	}

	if val := os.Getenv("DESCRIPTION_FETCH_MAX_BODY_SIZE"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.MaxBodySize = parsed
		} else {
			return cfg, fmt.Errorf("invalid DESCRIPTION_FETCH_MAX_BODY_SIZE: %v", err)
		}
	}

	if val := os.Getenv("DESCRIPTION_FETCH_MAX_REDIRECTS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.MaxRedirects = parsed
		} else {
			return cfg, fmt.Errorf("invalid DESCRIPTION_FETCH_MAX_REDIRECTS: %v", err)
		}
	}

	if val := os.Getenv("DESCRIPTION_FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
