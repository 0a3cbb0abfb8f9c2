package domain

import "errors"

var (
	// ErrNotFound is returned by stores and caches when a row or key does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrMissingReference means a mutation event targets a parent entity
	// that was never indexed. Per the drop policy such events are logged
	// and skipped, never fatal.
	ErrMissingReference = errors.New("missing referenced entity")

	// ErrTerminalState means a lifecycle event arrived for an auction that
	// is already settled or cancelled.
	ErrTerminalState = errors.New("auction in terminal state")
)
