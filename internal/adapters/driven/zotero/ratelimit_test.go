package zotero

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLimiter(now time.Time) *RateLimiter {
	r := NewRateLimiter(0)
	r.now = func() time.Time { return now }
	return r
}

func TestRateLimiter_BackoffHeader(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	r := fixedLimiter(now)

	r.UpdateFromResponse(&http.Response{Header: http.Header{HeaderBackoff: {"10"}}})

	assert.Equal(t, now.Add(10*time.Second), r.RetryAt())
}

func TestRateLimiter_KeepsLongestPause(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	r := fixedLimiter(now)

	r.UpdateFromResponse(&http.Response{Header: http.Header{HeaderBackoff: {"60"}}})
	r.UpdateFromResponse(&http.Response{Header: http.Header{HeaderBackoff: {"5"}}})

	assert.Equal(t, now.Add(60*time.Second), r.RetryAt())
}

func TestRateLimiter_IgnoresInvalidHeaders(t *testing.T) {
	r := fixedLimiter(time.Now())

	r.UpdateFromResponse(&http.Response{Header: http.Header{HeaderBackoff: {"soon"}}})
	r.UpdateFromResponse(&http.Response{Header: http.Header{HeaderBackoff: {"-3"}}})
	r.UpdateFromResponse(nil)

	assert.True(t, r.RetryAt().IsZero())
}

func TestRateLimiter_CheckRateLimit(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	r := fixedLimiter(now)

	assert.NoError(t, r.CheckRateLimit(&http.Response{StatusCode: http.StatusOK, Header: http.Header{}}))
	assert.NoError(t, r.CheckRateLimit(nil))

	err := r.CheckRateLimit(&http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{HeaderRetryAfter: {"120"}},
	})

	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, now.Add(2*time.Minute), rlErr.RetryAt)
	assert.Equal(t, now.Add(2*time.Minute), r.RetryAt())
}

func TestRateLimiter_WaitHonoursBackoff(t *testing.T) {
	r := NewRateLimiter(0)
	r.UpdateFromResponse(&http.Response{Header: http.Header{HeaderBackoff: {"1"}}})

	start := time.Now()
	require.NoError(t, r.Wait(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	r := NewRateLimiter(0)
	r.UpdateFromResponse(&http.Response{Header: http.Header{HeaderBackoff: {"60"}}})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_TokenBucket(t *testing.T) {
	r := NewRateLimiter(20)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Wait(ctx))
	}

	// first token is free, the next two cost 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
