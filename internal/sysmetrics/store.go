package sysmetrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Snapshot is one persisted system_metrics row.
type Snapshot struct {
	ID                int64     `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	HostSample
	ActiveSessions    int     `json:"active_sessions"`
	RequestsPerMinute float64 `json:"requests_per_minute"`
	RequestsPerHour   float64 `json:"requests_per_hour"`
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ErrorRate         float64 `json:"error_rate"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
	HealthStatus      string  `json:"health_status"`
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists metric snapshots.
type Store struct {
	db querier
}

// NewStore builds a store backed by pgxpool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("sysmetrics: pgx pool required")
	}
	return &Store{db: pool}
}

// NewStoreWithDB allows injecting a mock database for testing.
func NewStoreWithDB(db querier) *Store {
	return &Store{db: db}
}

// Insert appends one snapshot row.
func (s *Store) Insert(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return errors.New("sysmetrics: snapshot cannot be nil")
	}
	query := `
		INSERT INTO system_metrics (
			cpu_percent, memory_percent, memory_used_mb, memory_total_mb,
			disk_percent, disk_used_gb, disk_total_gb, active_sessions,
			requests_per_minute, requests_per_hour, total_requests,
			total_errors, error_rate, uptime_seconds, health_status
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`
	if _, err := s.db.Exec(ctx, query,
		snap.CPUPercent,
		snap.MemoryPercent,
		snap.MemoryUsedMB,
		snap.MemoryTotalMB,
		snap.DiskPercent,
		snap.DiskUsedGB,
		snap.DiskTotalGB,
		snap.ActiveSessions,
		snap.RequestsPerMinute,
		snap.RequestsPerHour,
		snap.TotalRequests,
		snap.TotalErrors,
		snap.ErrorRate,
		snap.UptimeSeconds,
		snap.HealthStatus,
	); err != nil {
		return fmt.Errorf("sysmetrics: insert snapshot failed: %w", err)
	}
	return nil
}

// ActiveSessions counts sessions with activity in the trailing 24 hours.
func (s *Store) ActiveSessions(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM user_sessions WHERE last_activity >= now() - interval '24 hours'`
	if err := s.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("sysmetrics: count active sessions failed: %w", err)
	}
	return count, nil
}
