package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned when no session row exists for the id.
var ErrSessionNotFound = errors.New("chat: session not found")

// SessionStore tracks per-session aggregate counters.
type SessionStore struct {
	db Querier
}

// NewSessionStore builds a store backed by pgxpool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	if pool == nil {
		panic("chat: pgx pool required")
	}
	return &SessionStore{db: pool}
}

// NewSessionStoreWithDB allows injecting a mock database for testing.
func NewSessionStoreWithDB(db Querier) *SessionStore {
	return &SessionStore{db: db}
}

// Upsert creates the session on first sight or bumps its counters. The
// accumulation happens in a single statement, so creation is idempotent
// under concurrent calls; the increments themselves are last-writer-wins
// with whatever interleaving the database applies, matching the original
// no-row-locking behavior.
func (s *SessionStore) Upsert(ctx context.Context, sessionID string, client ClientInfo, stats ExchangeStats) error {
	if sessionID == "" {
		return errors.New("chat: session id required")
	}
	if stats.Tokens < 0 || stats.ProcessingTime < 0 {
		return errors.New("chat: exchange stats must be non-negative")
	}

	errDelta := 0
	if stats.Failed {
		errDelta = 1
	}

	query := `
		INSERT INTO user_sessions (
			session_uuid, status, total_messages, total_tokens,
			total_processing_time, total_errors, avg_response_time,
			client_ip, client_agent
		)
		VALUES ($1, 'active', 1, $2, $3, $4, $3, $5, $6)
		ON CONFLICT (session_uuid) DO UPDATE SET
			last_activity         = now(),
			total_messages        = user_sessions.total_messages + 1,
			total_tokens          = user_sessions.total_tokens + EXCLUDED.total_tokens,
			total_processing_time = user_sessions.total_processing_time + EXCLUDED.total_processing_time,
			total_errors          = user_sessions.total_errors + EXCLUDED.total_errors,
			avg_response_time     = (user_sessions.total_processing_time + EXCLUDED.total_processing_time)
			                        / (user_sessions.total_messages + 1),
			updated_at            = now()
	`
	if _, err := s.db.Exec(ctx, query,
		sessionID,
		stats.Tokens,
		stats.ProcessingTime,
		errDelta,
		nullString(client.IP),
		nullString(client.UserAgent),
	); err != nil {
		return fmt.Errorf("chat: session upsert failed: %w", err)
	}
	return nil
}

// Get loads the aggregate counters for a session.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	query := `
		SELECT id, session_uuid, created_at, last_activity, status,
		       total_messages, total_tokens, total_processing_time,
		       total_errors, avg_response_time, rating
		FROM user_sessions
		WHERE session_uuid = $1
	`
	var rec SessionRecord
	if err := s.db.QueryRow(ctx, query, sessionID).Scan(
		&rec.ID,
		&rec.SessionUUID,
		&rec.CreatedAt,
		&rec.LastActivity,
		&rec.Status,
		&rec.TotalMessages,
		&rec.TotalTokens,
		&rec.TotalProcessingTime,
		&rec.TotalErrors,
		&rec.AvgResponseTime,
		&rec.Rating,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("chat: select session failed: %w", err)
	}
	return &rec, nil
}
