package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError reports why a single raw posting was rejected during
// normalization. Rejections are counted per run, never fatal.
type ValidationError struct {
	Source string
	Field  string
	Reason string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid posting from %s: field '%s': %s", e.Source, e.Field, e.Reason)
}

// Is reports whether the target is ErrValidationFailed, so callers can use
// errors.Is without knowing the concrete type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
