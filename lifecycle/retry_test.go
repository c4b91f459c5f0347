package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_RetryOnConflict_Success_NoRetries(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	err := RetryOnConflict(ctx, func(_ context.Context) error {
		callCount++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func Test_RetryOnConflict_RetriesConcurrencyConflict(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	err := RetryOnConflict(ctx, func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return ErrConcurrencyConflict
		}
		return nil
	}, WithBaseDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func Test_RetryOnConflict_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	err := RetryOnConflict(ctx, func(_ context.Context) error {
		callCount++
		return ErrConcurrencyConflict
	}, WithMaxAttempts(2), WithBaseDelay(time.Millisecond))

	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 2, callCount)
}

func Test_RetryOnConflict_DoesNotRetryOtherErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")
	callCount := 0

	err := RetryOnConflict(ctx, func(_ context.Context) error {
		callCount++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, callCount)
}

func Test_RetryOnConflict_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	err := RetryOnConflict(ctx, func(_ context.Context) error {
		callCount++
		cancel()
		return ErrConcurrencyConflict
	}, WithBaseDelay(time.Second))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
}

func Test_RetryOnConflict_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	tests := []struct {
		name string
		opt  RetryOption
		want error
	}{
		{"zero attempts", WithMaxAttempts(0), ErrInvalidMaxAttempts},
		{"negative delay", WithBaseDelay(-time.Millisecond), ErrNegativeBaseDelay},
		{"jitter above one", WithJitterFactor(1.5), ErrInvalidJitterFactor},
		{"negative jitter", WithJitterFactor(-0.1), ErrInvalidJitterFactor},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := RetryOnConflict(ctx, fn, tc.opt)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
