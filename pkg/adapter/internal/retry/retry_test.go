package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoReturnsNilOnFirstSuccess(t *testing.T) {
	calls := 0

	err := Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0

	err := Do(context.Background(), func() error {
		calls++
		if calls < MaxAttempts {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, MaxAttempts, calls)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("always fails")

	err := Do(context.Background(), func() error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	require.Equal(t, MaxAttempts, calls)
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error {
		return errors.New("fails")
	})

	require.Error(t, err)
}
