package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.False(t, cfg.IsRetryable(nil))
	assert.False(t, cfg.IsRetryable(context.Canceled))
	assert.False(t, cfg.IsRetryable(context.DeadlineExceeded))
	assert.False(t, cfg.IsRetryable(&statusError{code: 401}))
	assert.False(t, cfg.IsRetryable(&statusError{code: 404}))
	assert.False(t, cfg.IsRetryable(errors.New("permanent failure")))

	assert.True(t, cfg.IsRetryable(&statusError{code: 429}))
	assert.True(t, cfg.IsRetryable(&statusError{code: 500}))
	assert.True(t, cfg.IsRetryable(&statusError{code: 503}))
	assert.True(t, cfg.IsRetryable(errors.New("dial tcp: i/o timeout")))
	assert.True(t, cfg.IsRetryable(errors.New("connection refused")))
	// Wrapping must not hide the status.
	assert.True(t, cfg.IsRetryable(eris.Wrap(&statusError{code: 502}, "weather: fetch")))
}

func TestRetryWithBackoff_SucceedsAfterTransient(t *testing.T) {
	var calls int
	err := retryWithBackoff(context.Background(), "test op", noBackoff, func() error {
		calls++
		if calls < 3 {
			return &statusError{code: 503}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnPermanent(t *testing.T) {
	var calls int
	err := retryWithBackoff(context.Background(), "test op", noBackoff, func() error {
		calls++
		return &statusError{code: 400}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	var calls int
	err := retryWithBackoff(context.Background(), "test op", noBackoff, func() error {
		calls++
		return &statusError{code: 500}
	})
	assert.Error(t, err)
	assert.Equal(t, noBackoff.MaxRetries+1, calls)
}

func TestRetryWithBackoff_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryWithBackoff(ctx, "test op", noBackoff, func() error {
		t.Fatal("fn must not run with a canceled context")
		return nil
	})
	assert.Error(t, err)
}
