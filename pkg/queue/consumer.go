package queue

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mfittko/raged/pkg/controlapi"
)

// Fixed scheduling constants. The lease window and poll cadence are part of
// the wire contract with the control API, not tunable per-deployment: a
// shorter lease than the control API expects would cause the watchdog to
// recover tasks that are still legitimately in flight.
const (
	leaseDuration    = 300 * time.Second
	pollInterval     = time.Second
	pollIntervalJitter = 250 * time.Millisecond
	errorBackoff     = time.Second
)

// Pipeline is the subset of pipeline.Orchestrator a Consumer depends on.
type Pipeline interface {
	Process(ctx context.Context, resp *controlapi.ClaimResponse) error
}

// Consumer repeatedly claims a task, runs it through the pipeline, and
// reports the outcome. Between distinct tasks there is no ordering
// guarantee — consumers race for leases.
type Consumer struct {
	id       string
	client   *controlapi.Client
	pipeline Pipeline
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu             sync.RWMutex
	status         ConsumerStatus
	currentTaskID  string
	tasksProcessed int
	lastActivity   time.Time
}

// NewConsumer builds a Consumer identified by id.
func NewConsumer(id string, client *controlapi.Client, pipeline Pipeline) *Consumer {
	return &Consumer{
		id:           id,
		client:       client,
		pipeline:     pipeline,
		stopCh:       make(chan struct{}),
		status:       StatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the claim/process/report loop in a goroutine.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop signals the consumer to stop after its current task and waits for it
// to exit. Safe to call multiple times.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

// Health returns the current consumer health snapshot.
func (c *Consumer) Health() ConsumerHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ConsumerHealth{
		ID:             c.id,
		Status:         string(c.status),
		CurrentTaskID:  c.currentTaskID,
		TasksProcessed: c.tasksProcessed,
		LastActivity:   c.lastActivity,
	}
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()

	log := slog.With("consumer_id", c.id)
	log.Info("consumer started")

	for {
		select {
		case <-c.stopCh:
			log.Info("consumer shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, consumer shutting down")
			return
		default:
			if err := c.claimAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoTaskAvailable) {
					c.sleep(c.jitteredPollInterval())
					continue
				}
				log.Error("task processing error", "error", err)
				c.sleep(errorBackoff)
			}
		}
	}
}

func (c *Consumer) sleep(d time.Duration) {
	select {
	case <-c.stopCh:
	case <-time.After(d):
	}
}

// sleepUntil blocks until wallClock is reached. If the consumer is stopped or
// ctx is cancelled first, it returns immediately without error: the claimed
// task is simply abandoned to lease expiry and the watchdog, the same as any
// other in-flight task at shutdown. A wallClock already in the past returns
// immediately.
func (c *Consumer) sleepUntil(ctx context.Context, wallClock time.Time) error {
	d := time.Until(wallClock)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-c.stopCh:
	case <-ctx.Done():
	}
	return nil
}

// claimAndProcess claims one task, runs the pipeline, and reports the
// outcome. Any claim error, and a 5xx control-API error from the pipeline,
// propagates so the caller backs off; the in-flight task, if any, is left to
// lease expiry and the watchdog. Every other pipeline error (a 4xx, a
// network error on submit, an adapter or parsing failure) is reported via
// fail.
func (c *Consumer) claimAndProcess(ctx context.Context) error {
	resp, err := c.client.Claim(ctx, c.id, leaseDuration)
	if err != nil {
		return err
	}
	if resp == nil {
		return ErrNoTaskAvailable
	}

	c.setStatus(StatusWorking, resp.Task.ID)
	defer c.setStatus(StatusIdle, "")

	if resp.Task.RetryAfter != nil {
		if err := c.sleepUntil(ctx, *resp.Task.RetryAfter); err != nil {
			return err
		}
		// Stopped or cancelled during the wait: abandon the task to lease
		// expiry and the watchdog.
		select {
		case <-c.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}
	}

	if err := c.pipeline.Process(ctx, resp); err != nil {
		var statusErr *controlapi.StatusError
		if errors.As(err, &statusErr) && statusErr.IsTransient() {
			// Transient control-API error: propagate, back off, and leave the
			// in-flight task to lease expiry and the watchdog.
			return err
		}

		// Permanent control-API error, or any other pipeline failure (adapter,
		// parsing, submit): report it so the control API can apply its
		// retry/backoff/dead-letter policy.
		if failErr := c.client.Fail(ctx, resp.Task.ID, err.Error()); failErr != nil {
			return failErr
		}
		return nil
	}

	c.mu.Lock()
	c.tasksProcessed++
	c.mu.Unlock()

	return nil
}

// jitteredPollInterval returns the empty-queue poll sleep with symmetric
// jitter, avoiding every idle consumer waking in lockstep.
func (c *Consumer) jitteredPollInterval() time.Duration {
	offset := time.Duration(rand.Int64N(int64(2 * pollIntervalJitter)))
	return pollInterval - pollIntervalJitter + offset
}

func (c *Consumer) setStatus(status ConsumerStatus, taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.currentTaskID = taskID
	c.lastActivity = time.Now()
}
