package zotero

import (
	"errors"
	"fmt"
	"time"

	"github.com/slub/lisztbib/internal/core/domain"
)

// RateLimitError reports a 429 response. The run fails; RetryAt only
// tells the operator when the server will accept requests again.
type RateLimitError struct {
	RetryAt time.Time
	URL     string
}

func (e *RateLimitError) Error() string {
	if e.RetryAt.IsZero() {
		return fmt.Sprintf("zotero: rate limit exceeded (URL: %s)", e.URL)
	}
	return fmt.Sprintf("zotero: rate limit exceeded, retry after %s (URL: %s)",
		e.RetryAt.Format(time.RFC3339), e.URL)
}

// Unwrap classifies the error as an unavailable source.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrSourceUnavailable
}

// APIError represents a non-2xx Zotero API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zotero: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap classifies the error as an unavailable source.
func (e *APIError) Unwrap() error {
	return domain.ErrSourceUnavailable
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsForbidden checks if the error indicates a rejected API key or a
// library the key cannot read.
func IsForbidden(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 403
	}
	return false
}

// IsNotFound checks if the error indicates an unknown group.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}
