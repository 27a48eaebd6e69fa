package service

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const defaultReadRetryDelay = 100 * time.Millisecond

// readWithRetry runs an idempotent read, retrying a transient failure once. Not-found and
// cancellation are returned immediately.
func readWithRetry(ctx context.Context, delay time.Duration, fn func(ctx context.Context) error) error {
	if delay <= 0 {
		delay = defaultReadRetryDelay
	}
	backoff := retry.WithMaxRetries(1, retry.NewConstant(delay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil ||
			errors.Is(err, gorm.ErrRecordNotFound) ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return retry.RetryableError(err)
	})
}
