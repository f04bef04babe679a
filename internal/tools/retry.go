package tools

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withRetry applies the shared upstream retry policy: 3 attempts with
// exponential backoff between 4s and 10s. Operations mark non-retryable
// failures with backoff.Permanent.
func withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 4 * time.Second
	b.MaxInterval = 10 * time.Second
	b.Multiplier = 2
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx))
}

// retryableStatus reports whether an HTTP status is worth another attempt:
// rate limiting and server-side failures only.
func retryableStatus(status int) bool {
	return status == 429 || status >= 500
}
