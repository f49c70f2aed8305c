package notifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "request_id"

// TransientError represents a temporary delivery failure (SMTP 4xx reply,
// connection error). Worth retrying.
type TransientError struct {
	Code    int
	Message string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient delivery error (code %d): %s", e.Code, e.Message)
}

// PermanentError represents a permanent delivery failure (SMTP 5xx reply,
// bad recipient, auth rejection). Retrying will not help.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent delivery error (code %d): %s", e.Code, e.Message)
}

// classifySMTPError maps an smtp.SendMail error onto the transient or
// permanent error types using the reply code prefix. SMTP 4xx replies are
// temporary, 5xx replies are permanent. Errors without a reply code
// (network failures) stay as-is and are treated as transient.
func classifySMTPError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return err
	}
	code, convErr := strconv.Atoi(fields[0])
	if convErr != nil || code < 400 || code > 599 {
		return err
	}

	if code < 500 {
		return &TransientError{Code: code, Message: msg}
	}
	return &PermanentError{Code: code, Message: msg}
}

// isRetryableError checks if the error is worth retrying.
// Permanent failures are not; everything else (transient replies, network
// errors, timeouts) is.
func isRetryableError(err error) bool {
	var permanent *PermanentError
	return !errors.As(err, &permanent)
}
