package sysmetrics

import (
	"sync"
	"time"
)

// RequestCounter accumulates request volume for metric snapshots. The
// request-logger middleware feeds it; the collector drains rates from it.
type RequestCounter struct {
	mu     sync.Mutex
	total  int64
	errors int64
	stamps []time.Time
	now    func() time.Time
}

// NewRequestCounter creates an empty counter.
func NewRequestCounter() *RequestCounter {
	return &RequestCounter{now: time.Now}
}

// Observe records one finished request and whether it was an error response.
func (c *RequestCounter) Observe(status int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.total++
	if status >= 400 {
		c.errors++
	}
	c.stamps = append(c.stamps, now)
	c.trim(now)
}

// RateStats is a point-in-time view of request volume.
type RateStats struct {
	TotalRequests     int64
	TotalErrors       int64
	RequestsPerMinute float64
	RequestsPerHour   float64
	ErrorRate         float64
}

// Stats reports totals and trailing per-minute / per-hour request rates.
func (c *RequestCounter) Stats() RateStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.trim(now)

	minuteCutoff := now.Add(-time.Minute)
	var perMinute int
	for _, ts := range c.stamps {
		if ts.After(minuteCutoff) {
			perMinute++
		}
	}

	stats := RateStats{
		TotalRequests:     c.total,
		TotalErrors:       c.errors,
		RequestsPerMinute: float64(perMinute),
		RequestsPerHour:   float64(len(c.stamps)),
	}
	if c.total > 0 {
		stats.ErrorRate = float64(c.errors) / float64(c.total) * 100
	}
	return stats
}

// trim drops timestamps older than one hour; callers hold the lock.
func (c *RequestCounter) trim(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := c.stamps[:0]
	for _, ts := range c.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	c.stamps = kept
}
