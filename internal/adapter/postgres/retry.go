package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mediagrid/timestore/internal/domain"
)

const (
	retryAttempts = 3
	retryBase     = 100 * time.Millisecond
)

// WithRetry runs fn, retrying transient storage failures with capped
// exponential backoff. domain.ErrStorageUnavailable is retried up to
// retryAttempts times; domain.ErrStorageConflict is retried once after the
// caller's fn has had the chance to re-read. All other errors surface
// immediately.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	conflictRetried := false

	backoff := retry.WithMaxRetries(retryAttempts, retry.NewExponential(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, domain.ErrStorageUnavailable):
			return retry.RetryableError(err)
		case errors.Is(err, domain.ErrStorageConflict) && !conflictRetried:
			conflictRetried = true
			return retry.RetryableError(err)
		}
		return err
	})
}
