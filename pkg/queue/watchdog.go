package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// watchdogInterval is the fixed lease-recovery cadence. Every worker runs
// the watchdog independently; recover-stale is idempotent, so this is safe.
const watchdogInterval = 60 * time.Second

// watchdogState tracks lease-recovery metrics (thread-safe).
type watchdogState struct {
	mu             sync.Mutex
	lastScan       time.Time
	staleRecovered int
}

// runWatchdog periodically calls recover-stale on the control API. It never
// renews leases — leases are fixed-length and a task must either complete
// within the window or be considered stale.
func (p *Pool) runWatchdog(ctx context.Context) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.recoverStale(ctx)
		}
	}
}

func (p *Pool) recoverStale(ctx context.Context) {
	recovered, err := p.client.RecoverStale(ctx)
	if err != nil {
		slog.Error("recover-stale call failed", "error", err)
		return
	}

	p.watchdog.mu.Lock()
	p.watchdog.lastScan = time.Now()
	p.watchdog.staleRecovered += recovered
	p.watchdog.mu.Unlock()

	if recovered > 0 {
		slog.Warn("recovered stale leases", "count", recovered)
	}
}
