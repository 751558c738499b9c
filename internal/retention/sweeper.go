// Package retention deletes aged operational rows on a fixed schedule so
// the metrics and error tables do not grow without bound.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakhart/claude-agent/pkg/logging"
)

// Defaults mirror the service configuration: sweep daily, keep 30 days.
const (
	DefaultInterval  = 24 * time.Hour
	DefaultRetention = 30 * 24 * time.Hour
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sweeper prunes system_metrics and error_logs rows older than the
// retention window. Conversation and session rows are never touched.
type Sweeper struct {
	db        execer
	interval  time.Duration
	retention time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

// NewSweeper builds a sweeper backed by pgxpool. Non-positive interval or
// retention fall back to the defaults.
func NewSweeper(pool *pgxpool.Pool, interval, retention time.Duration, logger *logging.Logger) *Sweeper {
	if pool == nil {
		panic("retention: pgx pool required")
	}
	return newSweeper(pool, interval, retention, logger)
}

// NewSweeperWithDB allows injecting a mock database for testing.
func NewSweeperWithDB(db execer, interval, retention time.Duration, logger *logging.Logger) *Sweeper {
	return newSweeper(db, interval, retention, logger)
}

func newSweeper(db execer, interval, retention time.Duration, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{
		db:        db,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Run waits a full interval before the first sweep, then repeats until ctx
// is cancelled. A failed sweep is logged and the cadence continues.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce deletes rows older than the retention cutoff from both tables.
// A failure on the first table does not stop the second.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := s.now().Add(-s.retention)

	metricsDeleted, metricsErr := s.deleteBefore(ctx, "system_metrics", cutoff)
	errorsDeleted, errorsErr := s.deleteBefore(ctx, "error_logs", cutoff)

	if metricsErr == nil && errorsErr == nil {
		s.logger.Info("retention sweep completed",
			"metrics_deleted", metricsDeleted,
			"errors_deleted", errorsDeleted,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
		)
		return nil
	}
	if metricsErr != nil {
		return metricsErr
	}
	return errorsErr
}

func (s *Sweeper) deleteBefore(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE timestamp < $1`, table)
	tag, err := s.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention: delete from %s failed: %w", table, err)
	}
	return tag.RowsAffected(), nil
}
