package httpclient

import (
	"context"
	"fmt"
	nethttp "net/http"

	"golang.org/x/time/rate"
)

// NewRateLimitInterceptor blocks each attempt until the limiter admits it.
// Retries count against the same budget as first attempts.
func NewRateLimitInterceptor(limiter *rate.Limiter) RequestInterceptor {
	return func(ctx context.Context, _ *nethttp.Request) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		return nil
	}
}
