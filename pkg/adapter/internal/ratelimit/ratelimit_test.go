package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitSucceedsImmediatelyWithAmpleBurst(t *testing.T) {
	l := New(1000, 1000)

	err := l.Wait(context.Background())

	require.NoError(t, err)
}

func TestWaitRespectsCancelledContext(t *testing.T) {
	l := New(0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Burst of 1 lets the first call through; the second must wait and
	// should observe the already-cancelled context.
	require.NoError(t, l.Wait(context.Background()))
	err := l.Wait(ctx)

	require.Error(t, err)
}

func TestNewDisablesThrottlingForNonPositiveRPS(t *testing.T) {
	l := New(0, 1)

	for i := 0; i < 50; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
}
