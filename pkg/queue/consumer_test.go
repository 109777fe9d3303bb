package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mfittko/raged/pkg/controlapi"
)

type stubPipeline struct {
	processErr error
	calls      int32
}

func (s *stubPipeline) Process(ctx context.Context, resp *controlapi.ClaimResponse) error {
	atomic.AddInt32(&s.calls, 1)
	return s.processErr
}

func TestConsumerSleepWaitsForRequestedDuration(t *testing.T) {
	c := NewConsumer("c-1", controlapi.New("http://unused.invalid", ""), &stubPipeline{})

	start := time.Now()
	c.sleep(10 * time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestConsumerStopIsIdempotent(t *testing.T) {
	c := NewConsumer("c-1", controlapi.New("http://unused.invalid", ""), &stubPipeline{})
	c.Start(context.Background())
	c.Stop()
	c.Stop() // must not panic or deadlock
}

func TestConsumerHealthReflectsIdleByDefault(t *testing.T) {
	c := NewConsumer("c-1", controlapi.New("http://unused.invalid", ""), &stubPipeline{})
	health := c.Health()
	require.Equal(t, "c-1", health.ID)
	require.Equal(t, string(StatusIdle), health.Status)
	require.Zero(t, health.TasksProcessed)
}

func TestJitteredPollIntervalStaysWithinBounds(t *testing.T) {
	c := NewConsumer("c-1", controlapi.New("http://unused.invalid", ""), &stubPipeline{})
	for i := 0; i < 50; i++ {
		d := c.jitteredPollInterval()
		require.GreaterOrEqual(t, d, pollInterval-pollIntervalJitter)
		require.LessOrEqual(t, d, pollInterval+pollIntervalJitter)
	}
}

func TestSleepUntilReturnsImmediatelyForPastTime(t *testing.T) {
	c := NewConsumer("c-1", controlapi.New("http://unused.invalid", ""), &stubPipeline{})

	start := time.Now()
	err := c.sleepUntil(context.Background(), start.Add(-time.Hour))

	require.NoError(t, err)
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepUntilBlocksUntilWallClock(t *testing.T) {
	c := NewConsumer("c-1", controlapi.New("http://unused.invalid", ""), &stubPipeline{})

	start := time.Now()
	err := c.sleepUntil(context.Background(), start.Add(30*time.Millisecond))

	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSleepUntilReturnsEarlyOnStop(t *testing.T) {
	c := NewConsumer("c-1", controlapi.New("http://unused.invalid", ""), &stubPipeline{})
	close(c.stopCh)

	start := time.Now()
	err := c.sleepUntil(context.Background(), start.Add(time.Hour))

	require.NoError(t, err)
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSleepUntilReturnsEarlyOnContextCancellation(t *testing.T) {
	c := NewConsumer("c-1", controlapi.New("http://unused.invalid", ""), &stubPipeline{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := c.sleepUntil(ctx, start.Add(time.Hour))

	require.NoError(t, err)
	require.Less(t, time.Since(start), 50*time.Millisecond)
}
