package util

import (
	"context"
	"errors"
	"testing"

	"github.com/latticekg/lattice/pkg/common"
)

func TestRetryWithContextSucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RetryWithContext returned error: %v", err)
	}
	if got != "ok" {
		t.Errorf("RetryWithContext = %q, want %q", got, "ok")
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestRetryWithContextExhaustion(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := RetryWithContext(context.Background(), 2, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("always fails")
	})
	if !errors.Is(err, common.ErrRetriesExhausted) {
		t.Fatalf("error = %v, want ErrRetriesExhausted", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestRetryWithContextCancellationAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithContext(ctx, 5, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("fn called %d times after cancellation, want 0", calls)
	}
}

func TestRetryErrWithContext(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryErrWithContext(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryErrWithContext returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}
