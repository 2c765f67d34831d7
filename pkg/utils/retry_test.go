package utils

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func fastOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      3,
	}
}

func TestRetriesExternalErrors(t *testing.T) {
	calls := 0
	got, err := WithRetry(t.Context(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.External("ban", stderrors.New("502 bad gateway"))
		}
		return 7, nil
	}, fastOptions())

	assert.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, 3, calls)
}

func TestStopsOnForbidden(t *testing.T) {
	calls := 0
	err := Do(t.Context(), func() error {
		calls++
		return errors.Forbidden("ban", nil)
	}, fastOptions())

	assert.ErrorIs(t, err, errors.ErrForbidden)
	assert.Equal(t, 1, calls)
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(t.Context(), func() error {
		calls++
		return errors.External("timeout", stderrors.New("reset by peer"))
	}, fastOptions())

	assert.ErrorIs(t, err, errors.ErrExternalService)
	assert.Equal(t, 4, calls)
}

func TestRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	calls := 0
	err := Do(ctx, func() error {
		calls++
		return errors.External("ban", stderrors.New("unavailable"))
	}, fastOptions())

	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
