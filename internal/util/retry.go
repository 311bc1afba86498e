package util

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/latticekg/lattice/pkg/common"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay << attempt
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	// Up to 25% jitter so concurrent retries don't hammer in lockstep.
	jitter := time.Duration(rand.Int63n(int64(delay) / 4))
	return delay + jitter
}

// RetryWithContext calls fn up to maxTries times with exponential backoff
// until it returns a nil error or ctx is done. If maxTries <= 0, it defaults
// to 1. Cancellation and deadline errors abort immediately; any other error
// after the last attempt is wrapped with common.ErrRetriesExhausted.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoffDelay(i - 1)):
			}
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", common.ErrRetriesExhausted, maxTries, lastErr)
}

// RetryErrWithContext is RetryWithContext for functions that only return an error.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
