package app

import (
	"context"
	"math/rand"
	"time"

	clierr "github.com/ggonzalez94/yieldscout/internal/errors"
	"github.com/ggonzalez94/yieldscout/internal/logger"
)

// withRetry re-runs fn after network and rate-limit failures. Data format
// errors and timeouts are returned immediately.
func withRetry[T any](ctx context.Context, retries int, fn func(ctx context.Context) (T, error)) (T, error) {
	log := logger.GetForComponent("runner")
	var zero T
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := backoff(attempt)
			log.Info().Int("attempt", attempt).Dur("wait", wait).Err(lastErr).Msg("retrying catalog fetch")
			select {
			case <-ctx.Done():
				return zero, clierr.Wrap(clierr.CodeTimeout, "interrupted while waiting to retry", ctx.Err())
			case <-time.After(wait):
			}
		}
		data, err := fn(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable(err) {
			return zero, err
		}
	}
	return zero, lastErr
}

func retryable(err error) bool {
	return clierr.Is(err, clierr.CodeUnavailable) || clierr.Is(err, clierr.CodeRateLimited)
}

func backoff(attempt int) time.Duration {
	base := 120 * time.Millisecond
	d := base * time.Duration(1<<uint(attempt-1))
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	jitter := time.Duration(rand.Intn(75)) * time.Millisecond
	return d + jitter
}
