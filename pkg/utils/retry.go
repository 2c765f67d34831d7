package utils

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/cenkalti/backoff/v4"
)

// RetryOptions contains configuration for retry behavior.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// GetPlatformRetryOptions returns retry options for idempotent guild actions
// such as ban, unban and timeout.
func GetPlatformRetryOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  30 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     4 * time.Second,
		MaxRetries:      3,
	}
}

// WithRetry executes the operation with exponential backoff. Only errors the
// taxonomy marks as retryable are attempted again; the rest stop immediately
// and are returned unwrapped.
func WithRetry[T any](ctx context.Context, operation func() (T, error), opts RetryOptions) (T, error) {
	var result T

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	), opts.MaxRetries)

	backoffOperation := func() error {
		var err error
		result, err = operation()
		if err != nil && !errors.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(backoffOperation, backoff.WithContext(b, ctx))
	return result, err
}

// Do is WithRetry for operations without a result.
func Do(ctx context.Context, operation func() error, opts RetryOptions) error {
	_, err := WithRetry(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, opts)
	return err
}
