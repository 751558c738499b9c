// Package admin exposes operator-facing statistics over the persisted
// conversation, session, and metrics tables.
package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oakhart/claude-agent/pkg/logging"
)

// recentMetricsLimit bounds the snapshot history returned by the stats
// endpoint to roughly a day of five-minute samples.
const recentMetricsLimit = 24

// Stats aggregates service-wide usage for the admin surface.
type Stats struct {
	TotalConversations      int64         `json:"total_conversations"`
	SuccessfulConversations int64         `json:"successful_conversations"`
	SuccessRate             float64       `json:"success_rate"`
	TotalSessions           int64         `json:"total_sessions"`
	ActiveSessions24h       int64         `json:"active_sessions_24h"`
	RecentMetrics           []MetricPoint `json:"recent_metrics"`
}

// MetricPoint is a trimmed system_metrics row for dashboard charts.
type MetricPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	CPUPercent     float64   `json:"cpu_percent"`
	MemoryPercent  float64   `json:"memory_percent"`
	ActiveSessions int       `json:"active_sessions"`
}

// StatsRepository queries aggregate statistics from the database.
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(db *sql.DB) *StatsRepository {
	if db == nil {
		panic("admin: database required for stats")
	}
	return &StatsRepository{db: db}
}

// GetStats retrieves service-wide aggregates. The success rate divides by
// max(total, 1) so an empty table reports 0 rather than erroring.
func (r *StatsRepository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{RecentMetrics: []MetricPoint{}}

	query := `SELECT COUNT(*) FROM conversation_logs`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalConversations); err != nil {
		return nil, fmt.Errorf("admin stats: count conversations: %w", err)
	}

	query = `SELECT COUNT(*) FROM conversation_logs WHERE success = true`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.SuccessfulConversations); err != nil {
		return nil, fmt.Errorf("admin stats: count successful: %w", err)
	}

	total := stats.TotalConversations
	if total < 1 {
		total = 1
	}
	stats.SuccessRate = float64(stats.SuccessfulConversations) / float64(total) * 100

	query = `SELECT COUNT(*) FROM user_sessions`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalSessions); err != nil {
		return nil, fmt.Errorf("admin stats: count sessions: %w", err)
	}

	query = `SELECT COUNT(*) FROM user_sessions WHERE last_activity >= now() - interval '24 hours'`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.ActiveSessions24h); err != nil {
		return nil, fmt.Errorf("admin stats: count active sessions: %w", err)
	}

	query = `
		SELECT timestamp, cpu_percent, memory_percent, active_sessions
		FROM system_metrics
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, recentMetricsLimit)
	if err != nil {
		return nil, fmt.Errorf("admin stats: recent metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var point MetricPoint
		if err := rows.Scan(&point.Timestamp, &point.CPUPercent, &point.MemoryPercent, &point.ActiveSessions); err != nil {
			return nil, fmt.Errorf("admin stats: scan metric row: %w", err)
		}
		stats.RecentMetrics = append(stats.RecentMetrics, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("admin stats: iterate metric rows: %w", err)
	}

	return stats, nil
}

// StatsHandler provides the admin statistics endpoint.
type StatsHandler struct {
	repo   *StatsRepository
	logger *logging.Logger
}

// NewStatsHandler creates a new stats HTTP handler.
func NewStatsHandler(repo *StatsRepository, logger *logging.Logger) *StatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatsHandler{
		repo:   repo,
		logger: logger,
	}
}

// GetStats returns service-wide statistics.
// GET /admin/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to retrieve admin stats", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to retrieve stats"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("failed to encode admin stats", "error", err)
	}
}
