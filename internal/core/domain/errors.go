package domain

import "errors"

// Domain errors represent failures of a sync run.
// Adapters wrap these so callers can classify with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates the sync configuration is incomplete or inconsistent.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Remote Source Errors.

	// ErrSourceUnavailable indicates the remote source could not be reached
	// or answered with a non-success status.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedResponse indicates an expected field or header was absent
	// from a source response.
	ErrMalformedResponse = errors.New("malformed response")

	// Search Index Errors.

	// ErrIndexOperationFailed indicates an index lifecycle call or a bulk
	// write was rejected by the search engine.
	ErrIndexOperationFailed = errors.New("index operation failed")
)
