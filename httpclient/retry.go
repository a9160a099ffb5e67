package httpclient

import (
	"context"
	"errors"
	"time"
)

// DefaultMaxAttempts is the total number of attempts (first try included)
// made for one logical request.
const DefaultMaxAttempts = 5

// RetryPolicy bounds how a logical request is retried. The zero value makes
// DefaultMaxAttempts immediate attempts classified by Classify.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, first attempt included.
	MaxAttempts int
	// Delay is a fixed pause between attempts. Zero retries immediately.
	Delay time.Duration
	// Classify overrides the failure classifier.
	Classify func(error) Classification
	// OnRetry is called after a retryable failure, before the next attempt.
	OnRetry func(attempt int, err error)
}

// AttemptFunc performs one attempt. attempt starts at 1.
type AttemptFunc[T any] func(ctx context.Context, attempt int) (T, error)

// Execute runs fn until it succeeds, fails terminally, or the attempt budget is spent.
// Retry state lives only for the duration of this call.
func Execute[T any](ctx context.Context, policy RetryPolicy, fn AttemptFunc[T]) (T, error) {
	var zero T

	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	classify := policy.Classify
	if classify == nil {
		classify = Classify
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, errors.Join(err, lastErr)
			}
			return zero, err
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if classify(err) == Terminal {
			return zero, err
		}
		if attempt >= maxAttempts {
			return zero, NewRetriesExhaustedError(attempt, err)
		}

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
		if policy.Delay > 0 {
			if err := sleep(ctx, policy.Delay); err != nil {
				return zero, errors.Join(err, lastErr)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
