package hostapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantmind-br/repocrawl-go/internal/domain"
	"github.com/quantmind-br/repocrawl-go/internal/hostapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(maxRetries int) *hostapi.Retrier {
	return hostapi.NewRetrier(hostapi.RetrierOptions{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
		MinWait:         time.Millisecond,
	})
}

func TestRetrier_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	err := fastRetrier(3).Do(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_RetriesRateLimits(t *testing.T) {
	attempts := 0
	err := fastRetrier(5).Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &domain.RateLimitError{Op: "list tree", Reset: time.Now().Add(-time.Hour)}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_StopsAtCeiling(t *testing.T) {
	attempts := 0
	err := fastRetrier(2).Do(context.Background(), func() error {
		attempts++
		return &domain.RateLimitError{Op: "list tree"}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	// Initial attempt + 2 retries
	assert.Equal(t, 3, attempts)
}

func TestRetrier_ZeroMeansUnbounded(t *testing.T) {
	attempts := 0
	err := fastRetrier(0).Do(context.Background(), func() error {
		attempts++
		if attempts < 15 {
			return domain.ErrRateLimited
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 15, attempts)
}

func TestRetrier_PermanentError(t *testing.T) {
	attempts := 0
	notFound := domain.NewAPIError("list tree", "http://x", 404, nil)
	err := fastRetrier(5).Do(context.Background(), func() error {
		attempts++
		return notFound
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Same(t, notFound, err)
}

func TestRetrier_HonoursHint(t *testing.T) {
	retrier := hostapi.NewRetrier(hostapi.RetrierOptions{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		MinWait:         time.Millisecond,
	})

	attempts := 0
	start := time.Now()
	err := retrier.Do(context.Background(), func() error {
		attempts++
		if attempts == 1 {
			return &domain.RateLimitError{Op: "fetch file", RetryAfter: 50 * time.Millisecond}
		}
		return nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRetrier_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastRetrier(0).Do(ctx, func() error {
		return domain.ErrRateLimited
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrRateLimited))
}

func TestRetryWithValue(t *testing.T) {
	attempts := 0
	value, err := hostapi.RetryWithValue(context.Background(), fastRetrier(3), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", domain.ErrRateLimited
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetrierOptions(t *testing.T) {
	opts := hostapi.DefaultRetrierOptions()

	assert.Equal(t, 10, opts.MaxRetries)
	assert.Equal(t, time.Second, opts.MinWait)
	assert.Equal(t, 2.0, opts.Multiplier)
}

func TestRetrier_ThrottlesAttempts(t *testing.T) {
	r := hostapi.NewRetrier(hostapi.RetrierOptions{
		MaxRetries:        1,
		InitialInterval:   time.Millisecond,
		MinWait:           time.Millisecond,
		RequestsPerSecond: 20,
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Do(context.Background(), func() error { return nil }))
	}

	// the first attempt uses the burst, the next two wait 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRetrier_ThrottleHonoursCancellation(t *testing.T) {
	r := hostapi.NewRetrier(hostapi.RetrierOptions{RequestsPerSecond: 0.001})
	require.NoError(t, r.Do(context.Background(), func() error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := r.Do(ctx, func() error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
}
