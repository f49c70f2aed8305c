package aggregate

import (
	"errors"
	"fmt"
)

// Fatal pipeline errors. Per-adapter and per-posting failures are aggregated
// into the run result instead; only these abort a run.
var (
	// ErrNoAdapters indicates the orchestrator was built without sources.
	ErrNoAdapters = errors.New("no source adapters configured")

	// ErrAllSourcesFailed indicates every adapter fetch failed, so the run
	// has nothing to report. Stored state is left untouched.
	ErrAllSourcesFailed = errors.New("all source adapters failed")
)

// FetchError wraps a single adapter's failure with its source name. It is
// recorded in the run summary and never aborts the run on its own.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StorageError marks a retention store failure. Storage errors are fatal for
// the run: the batch commit fails closed and prior state remains untouched.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
