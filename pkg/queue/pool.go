package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mfittko/raged/pkg/controlapi"
)

// adapterAvailabilityTTL bounds how often /readyz's adapter reachability
// check actually calls the adapter, rather than on every poll.
const adapterAvailabilityTTL = 30 * time.Second

// AdapterChecker is the subset of adapter.Adapter the pool needs to report
// readiness, kept narrow so this package doesn't need to import pkg/adapter.
type AdapterChecker interface {
	IsAvailable(ctx context.Context) bool
}

// Pool owns N consumers racing for leases plus one watchdog, and is the
// single entry point a running worker process starts and stops.
type Pool struct {
	workerID    string
	client      *controlapi.Client
	pipeline    Pipeline
	adapter     AdapterChecker
	concurrency int

	consumers []*Consumer
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	started   bool
	mu        sync.Mutex

	watchdog     watchdogState
	availability availabilityCache
}

// availabilityCache memoizes the adapter's last IsAvailable result so
// concurrent /readyz polls don't each trigger a live provider call.
type availabilityCache struct {
	mu        sync.Mutex
	checkedAt time.Time
	available bool
}

// NewPool builds a Pool that will run concurrency consumers identified as
// "{workerID}-{n}" plus one watchdog, once Start is called. adapter is
// polled (cached, refreshed every 30s) to populate Health's readiness signal.
func NewPool(workerID string, client *controlapi.Client, pipeline Pipeline, adapter AdapterChecker, concurrency int) *Pool {
	return &Pool{
		workerID:    workerID,
		client:      client,
		pipeline:    pipeline,
		adapter:     adapter,
		concurrency: concurrency,
		consumers:   make([]*Consumer, 0, concurrency),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the consumer goroutines and the watchdog. Safe to call
// multiple times; subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		slog.Warn("pool already started, ignoring duplicate Start call", "worker_id", p.workerID)
		return
	}
	p.started = true

	slog.Info("starting consumer pool", "worker_id", p.workerID, "concurrency", p.concurrency)

	for i := 0; i < p.concurrency; i++ {
		consumerID := fmt.Sprintf("%s-%d", p.workerID, i)
		consumer := NewConsumer(consumerID, p.client, p.pipeline)
		p.consumers = append(p.consumers, consumer)
		consumer.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runWatchdog(ctx)
	}()

	slog.Info("consumer pool started")
}

// Stop signals all consumers and the watchdog to stop, then waits for them
// to finish. Consumers finish their current task before exiting.
func (p *Pool) Stop() {
	slog.Info("stopping consumer pool")

	for _, consumer := range p.consumers {
		consumer.Stop()
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("consumer pool stopped")
}

// Health returns the current health snapshot of the pool. IsHealthy (and
// thus /readyz's status code) is true only once the pool has started and the
// adapter's last reachability check succeeded.
func (p *Pool) Health(ctx context.Context) PoolHealth {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	stats := make([]ConsumerHealth, len(p.consumers))
	active := 0
	for i, consumer := range p.consumers {
		stats[i] = consumer.Health()
		if stats[i].Status == string(StatusWorking) {
			active++
		}
	}

	p.watchdog.mu.Lock()
	lastScan := p.watchdog.lastScan
	staleRecovered := p.watchdog.staleRecovered
	p.watchdog.mu.Unlock()

	available := p.adapterAvailable(ctx)

	return PoolHealth{
		IsHealthy:        started && available,
		Started:          started,
		AdapterAvailable: available,
		WorkerID:         p.workerID,
		ActiveConsumers:  active,
		TotalConsumers:   len(p.consumers),
		ConsumerStats:    stats,
		LastWatchdogScan: lastScan,
		StaleRecovered:   staleRecovered,
	}
}

// adapterAvailable returns the adapter's last-known reachability, refreshing
// it at most once per adapterAvailabilityTTL.
func (p *Pool) adapterAvailable(ctx context.Context) bool {
	p.availability.mu.Lock()
	defer p.availability.mu.Unlock()

	if !p.availability.checkedAt.IsZero() && time.Since(p.availability.checkedAt) < adapterAvailabilityTTL {
		return p.availability.available
	}

	p.availability.available = p.adapter.IsAvailable(ctx)
	p.availability.checkedAt = time.Now()
	return p.availability.available
}
