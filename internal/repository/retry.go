package repository

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable
// error, or maxAttempts is reached. Delays double from baseDelay with jitter.
func retryWithBackoff(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Float64() * float64(delay) * defaultJitterFactor) //nolint:gosec // jitter only
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
