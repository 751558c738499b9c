// Package sysmetrics samples host resource utilization on a fixed interval
// and persists append-only snapshots for the admin surface.
package sysmetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Health thresholds applied to a host sample.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// HostSample is one reading of host resource utilization.
type HostSample struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
	DiskTotalGB   float64 `json:"disk_total_gb"`
}

// Sampler reads host utilization via gopsutil.
type Sampler struct {
	start    time.Time
	diskPath string
	// cpuInterval blocks the sample for a comparison window; zero means
	// "since last call", which suits frequent polling.
	cpuInterval time.Duration
}

// NewSampler creates a sampler anchored at the process start time.
func NewSampler(start time.Time) *Sampler {
	return &Sampler{
		start:       start,
		diskPath:    "/",
		cpuInterval: time.Second,
	}
}

// Sample reads current host utilization.
func (s *Sampler) Sample(ctx context.Context) (HostSample, error) {
	percents, err := cpu.PercentWithContext(ctx, s.cpuInterval, false)
	if err != nil {
		return HostSample{}, fmt.Errorf("sysmetrics: cpu sample failed: %w", err)
	}
	var cpuPercent float64
	if len(percents) > 0 {
		cpuPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return HostSample{}, fmt.Errorf("sysmetrics: memory sample failed: %w", err)
	}

	du, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		return HostSample{}, fmt.Errorf("sysmetrics: disk sample failed: %w", err)
	}

	return HostSample{
		CPUPercent:    cpuPercent,
		MemoryPercent: vm.UsedPercent,
		MemoryUsedMB:  float64(vm.Used) / 1024 / 1024,
		MemoryTotalMB: float64(vm.Total) / 1024 / 1024,
		DiskPercent:   du.UsedPercent,
		DiskUsedGB:    float64(du.Used) / 1024 / 1024 / 1024,
		DiskTotalGB:   float64(du.Total) / 1024 / 1024 / 1024,
	}, nil
}

// UptimeSeconds reports whole seconds since process start.
func (s *Sampler) UptimeSeconds() int64 {
	return int64(time.Since(s.start).Seconds())
}

// HealthStatus classifies a sample against fixed thresholds.
func HealthStatus(sample HostSample) string {
	switch {
	case sample.CPUPercent >= 90 || sample.MemoryPercent >= 90 || sample.DiskPercent >= 95:
		return HealthCritical
	case sample.CPUPercent >= 75 || sample.MemoryPercent >= 75 || sample.DiskPercent >= 80:
		return HealthWarning
	default:
		return HealthHealthy
	}
}
