package enrich

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the backoff loop around a provider call.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig keeps retries short: enrichment is supplementary
// and must not stall ingestion of the rest of a batch.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
	}
}

// statusError marks a non-200 provider response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.code)
}

// IsRetryable reports whether err looks transient. Context
// cancellation and client-side 4xx responses are never retried.
func (rc RetryConfig) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		return se.code == 429 || se.code >= 500
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unavailable")
}

// retryWithBackoff runs fn with exponential backoff and jitter until it
// succeeds, the error stops being retryable, or the attempts run out.
func retryWithBackoff(ctx context.Context, operation string, cfg RetryConfig, fn func() error) error {
	var err error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !cfg.IsRetryable(err) || attempt == cfg.MaxRetries {
			return err
		}

		backoff := backoffDuration(attempt, cfg)
		zap.L().Debug("retrying provider call",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("%s canceled during retry: %w", operation, ctx.Err())
		}
	}

	return err
}

// backoffDuration computes exponential backoff with ±20% jitter.
func backoffDuration(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt))
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff *= 1 + jitter
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	return time.Duration(backoff)
}
