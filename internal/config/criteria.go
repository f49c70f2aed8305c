// Package config loads the aggregation criteria that drive the pipeline:
// search keywords, preferred locations, optional designation/field filters,
// and the retention policy. Criteria come from a YAML file with environment
// variable overrides, so CI schedulers can tweak a run without editing files.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// UpdatePolicy controls how stored fields are refreshed when a fingerprint
// re-appears in a later run.
type UpdatePolicy string

const (
	// UpdateOverwrite replaces mutable fields with the last-seen values.
	UpdateOverwrite UpdatePolicy = "overwrite"
	// UpdateFillGaps only sets fields that are currently empty in storage.
	UpdateFillGaps UpdatePolicy = "fill_gaps"
)

// Criteria holds the user-supplied search and retention configuration.
type Criteria struct {
	SearchKeywords     []string     `yaml:"search_keywords"`
	PreferredLocations []string     `yaml:"preferred_locations"`
	FilterDesignations []string     `yaml:"filter_designations"`
	FilterFields       []string     `yaml:"filter_fields"`
	SourcePriority     []string     `yaml:"source_priority"`
	RetentionDays      int          `yaml:"retention_days"`
	NewWindowHours     int          `yaml:"new_window_hours"`
	UpdatePolicy       UpdatePolicy `yaml:"update_policy"`
}

// DefaultCriteria returns criteria with the documented defaults applied:
// a 2-day retention window and a 24-hour "new" lookback.
func DefaultCriteria() Criteria {
	return Criteria{
		RetentionDays:  2,
		NewWindowHours: 24,
		UpdatePolicy:   UpdateOverwrite,
	}
}

// LoadCriteria reads criteria from the YAML file at path, applies defaults
// for unset numeric fields, then applies environment overrides. The path is
// expected to come from a trusted source (CLI arg or hardcoded default).
func LoadCriteria(path string) (*Criteria, error) {
	c := DefaultCriteria()

	if path != "" {
		// #nosec G304 -- path is provided by trusted source, not user input
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read criteria file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse criteria file: %w", err)
		}
	}

	applyEnvOverrides(&c)

	if c.RetentionDays <= 0 {
		c.RetentionDays = 2
	}
	if c.NewWindowHours <= 0 {
		c.NewWindowHours = 24
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that the criteria are internally consistent.
func (c *Criteria) Validate() error {
	switch c.UpdatePolicy {
	case UpdateOverwrite, UpdateFillGaps, "":
	default:
		return fmt.Errorf("invalid update_policy %q (must be %q or %q)",
			c.UpdatePolicy, UpdateOverwrite, UpdateFillGaps)
	}
	if c.UpdatePolicy == "" {
		c.UpdatePolicy = UpdateOverwrite
	}
	return nil
}

// applyEnvOverrides replaces list fields from comma-separated env vars when
// set. This mirrors how the GitHub Actions scheduler passes secrets in.
func applyEnvOverrides(c *Criteria) {
	if v := os.Getenv("SEARCH_KEYWORDS"); v != "" {
		c.SearchKeywords = splitList(v)
	}
	if v := os.Getenv("PREFERRED_LOCATIONS"); v != "" {
		c.PreferredLocations = splitList(v)
	}
	if v := os.Getenv("FILTER_DESIGNATIONS"); v != "" {
		c.FilterDesignations = splitList(v)
	}
	if v := os.Getenv("FILTER_FIELDS"); v != "" {
		c.FilterFields = splitList(v)
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
