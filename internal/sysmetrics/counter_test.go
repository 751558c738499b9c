package sysmetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestCounterStats(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewRequestCounter()
	c.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		c.Observe(200)
	}
	c.Observe(500)

	stats := c.Stats()
	assert.Equal(t, int64(6), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.TotalErrors)
	assert.InDelta(t, 100.0/6, stats.ErrorRate, 0.001)
	assert.Equal(t, 6.0, stats.RequestsPerMinute)
	assert.Equal(t, 6.0, stats.RequestsPerHour)
}

func TestRequestCounterRatesDecayWithTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewRequestCounter()
	c.now = func() time.Time { return now }

	c.Observe(200)
	c.Observe(200)

	// Two minutes later: out of the per-minute window, inside the hour.
	now = now.Add(2 * time.Minute)
	c.Observe(404)

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.TotalErrors)
	assert.Equal(t, 1.0, stats.RequestsPerMinute)
	assert.Equal(t, 3.0, stats.RequestsPerHour)

	// Beyond the hour the stamps fall away but totals remain.
	now = now.Add(2 * time.Hour)
	stats = c.Stats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, 0.0, stats.RequestsPerMinute)
	assert.Equal(t, 0.0, stats.RequestsPerHour)
}

func TestRequestCounterErrorStatuses(t *testing.T) {
	c := NewRequestCounter()
	c.Observe(200)
	c.Observe(399)
	c.Observe(400)
	c.Observe(429)
	c.Observe(503)

	stats := c.Stats()
	assert.Equal(t, int64(5), stats.TotalRequests)
	assert.Equal(t, int64(3), stats.TotalErrors)
	assert.InDelta(t, 60.0, stats.ErrorRate, 0.001)
}

func TestRequestCounterEmpty(t *testing.T) {
	c := NewRequestCounter()
	stats := c.Stats()
	assert.Equal(t, int64(0), stats.TotalRequests)
	assert.Equal(t, 0.0, stats.ErrorRate)
}
