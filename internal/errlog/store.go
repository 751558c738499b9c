// Package errlog persists error occurrences for later inspection. Rows are
// append-only and pruned by the retention sweeper.
package errlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store writes error_logs rows.
type Store struct {
	db execer
}

// NewStore builds a store backed by pgxpool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("errlog: pgx pool required")
	}
	return &Store{db: pool}
}

// NewStoreWithDB allows injecting a mock database for testing.
func NewStoreWithDB(db execer) *Store {
	return &Store{db: db}
}

// Record inserts one error occurrence.
func (s *Store) Record(ctx context.Context, level, errorType, message, sessionID string) error {
	query := `
		INSERT INTO error_logs (level, error_type, message, session_id)
		VALUES ($1, $2, $3, $4)
	`
	var sid any
	if sessionID != "" {
		sid = sessionID
	}
	if _, err := s.db.Exec(ctx, query, level, errorType, message, sid); err != nil {
		return fmt.Errorf("errlog: insert failed: %w", err)
	}
	return nil
}
