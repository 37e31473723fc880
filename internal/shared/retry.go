package shared

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds retry attempts for transient remote failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy retries three times with exponential backoff (1s, 2s, 4s).
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}

// Retry runs fn up to policy.MaxAttempts times, sleeping BaseDelay*2^attempt
// between failures. Authentication errors are never retried; they abort the
// whole run. Returns the last error when all attempts fail.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := policy.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := delay * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrAuthFailed) || errors.Is(lastErr, ErrNotAuthenticated) {
			return lastErr
		}
	}

	return lastErr
}
