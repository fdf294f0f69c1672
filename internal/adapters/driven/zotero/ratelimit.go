package zotero

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// HeaderBackoff asks clients to pause before the next request (seconds).
	HeaderBackoff = "Backoff"

	// HeaderRetryAfter accompanies 429 responses (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter throttles requests with a token bucket and honours the
// server's Backoff header by delaying the next request.
type RateLimiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond requests
// with no burst. A non-positive rate disables proactive throttling.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(limit, 1),
		now:    time.Now,
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.bucket.Wait(ctx)
}

// UpdateFromResponse records a Backoff or Retry-After header so the next
// Wait pauses accordingly.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	seconds, ok := headerSeconds(resp, HeaderBackoff)
	if !ok {
		seconds, ok = headerSeconds(resp, HeaderRetryAfter)
	}
	if !ok {
		return
	}

	until := r.now().Add(time.Duration(seconds) * time.Second)
	r.mu.Lock()
	defer r.mu.Unlock()
	if until.After(r.retryAt) {
		r.retryAt = until
	}
}

// CheckRateLimit records the response's pause headers and returns a
// RateLimitError for a 429 response, nil otherwise.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) error {
	if resp == nil {
		return nil
	}
	r.UpdateFromResponse(resp)
	if resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	rlErr := &RateLimitError{}
	if resp.Request != nil {
		rlErr.URL = resp.Request.URL.String()
	}
	if seconds, ok := headerSeconds(resp, HeaderRetryAfter); ok {
		rlErr.RetryAt = r.now().Add(time.Duration(seconds) * time.Second)
	}
	return rlErr
}

// RetryAt returns the time before which no request will be made.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}

func headerSeconds(resp *http.Response, name string) (int, bool) {
	v := resp.Header.Get(name)
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return seconds, true
}
