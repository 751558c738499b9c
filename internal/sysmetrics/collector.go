package sysmetrics

import (
	"context"
	"time"

	"github.com/oakhart/claude-agent/pkg/logging"
)

// DefaultInterval is how often the collector writes a snapshot.
const DefaultInterval = 5 * time.Minute

type hostSampler interface {
	Sample(ctx context.Context) (HostSample, error)
	UptimeSeconds() int64
}

type snapshotStore interface {
	Insert(ctx context.Context, snap *Snapshot) error
	ActiveSessions(ctx context.Context) (int, error)
}

// Collector runs the periodic metrics loop. Sampling or write failures are
// logged and the loop keeps its cadence; it stops only when ctx is done.
type Collector struct {
	sampler  hostSampler
	store    snapshotStore
	counter  *RequestCounter
	interval time.Duration
	logger   *logging.Logger
}

// NewCollector creates a collector. A non-positive interval falls back to
// the default.
func NewCollector(sampler hostSampler, store snapshotStore, counter *RequestCounter, interval time.Duration, logger *logging.Logger) *Collector {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Collector{
		sampler:  sampler,
		store:    store,
		counter:  counter,
		interval: interval,
		logger:   logger,
	}
}

// Run loops until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce(ctx)
		}
	}
}

// CollectOnce samples the host and writes a single snapshot. Exposed so
// tests and the health surface can drive one bounded iteration.
func (c *Collector) CollectOnce(ctx context.Context) {
	sample, err := c.sampler.Sample(ctx)
	if err != nil {
		c.logger.Error("failed to collect system metrics", "error", err)
		return
	}

	snap := &Snapshot{
		HostSample:    sample,
		UptimeSeconds: c.sampler.UptimeSeconds(),
		HealthStatus:  HealthStatus(sample),
	}

	if active, err := c.store.ActiveSessions(ctx); err != nil {
		c.logger.Warn("failed to count active sessions", "error", err)
	} else {
		snap.ActiveSessions = active
	}

	if c.counter != nil {
		stats := c.counter.Stats()
		snap.RequestsPerMinute = stats.RequestsPerMinute
		snap.RequestsPerHour = stats.RequestsPerHour
		snap.TotalRequests = stats.TotalRequests
		snap.TotalErrors = stats.TotalErrors
		snap.ErrorRate = stats.ErrorRate
	}

	if err := c.store.Insert(ctx, snap); err != nil {
		c.logger.Error("failed to persist system metrics", "error", err)
		return
	}

	c.logger.Debug("system metrics collected",
		"cpu_percent", sample.CPUPercent,
		"memory_percent", sample.MemoryPercent,
		"health", snap.HealthStatus,
	)
}
