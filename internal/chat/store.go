package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the stores need; tests inject a mock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConversationStore persists conversation exchanges.
type ConversationStore struct {
	db Querier
}

// NewConversationStore builds a store backed by pgxpool.
func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	if pool == nil {
		panic("chat: pgx pool required")
	}
	return &ConversationStore{db: pool}
}

// NewConversationStoreWithDB allows injecting a mock database for testing.
func NewConversationStoreWithDB(db Querier) *ConversationStore {
	return &ConversationStore{db: db}
}

// Insert writes one exchange row. Counters are validated as non-negative
// before touching the database; the schema enforces the same constraints.
func (s *ConversationStore) Insert(ctx context.Context, rec *ConversationRecord) error {
	if rec == nil {
		return errors.New("chat: conversation record cannot be nil")
	}
	if rec.SessionID == "" {
		return errors.New("chat: conversation record requires a session id")
	}
	if rec.TokensUsed < 0 {
		return fmt.Errorf("chat: tokens_used must be non-negative, got %d", rec.TokensUsed)
	}
	if rec.ProcessingTime < 0 {
		return fmt.Errorf("chat: processing_time must be non-negative, got %f", rec.ProcessingTime)
	}

	query := `
		INSERT INTO conversation_logs (
			session_id, user_message, assistant_response, tokens_used,
			processing_time, model_used, success, error_message, error_type,
			client_ip, client_agent
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, timestamp
	`
	if err := s.db.QueryRow(ctx, query,
		rec.SessionID,
		rec.UserMessage,
		rec.AssistantResponse,
		rec.TokensUsed,
		rec.ProcessingTime,
		rec.ModelUsed,
		rec.Success,
		nullString(rec.ErrorMessage),
		nullString(rec.ErrorType),
		nullString(rec.ClientIP),
		nullString(rec.ClientAgent),
	).Scan(&rec.ID, &rec.Timestamp); err != nil {
		return fmt.Errorf("chat: insert conversation failed: %w", err)
	}
	return nil
}

// RecentSuccessful returns up to limit successful exchanges for the session,
// newest first.
func (s *ConversationStore) RecentSuccessful(ctx context.Context, sessionID string, limit int) ([]ConversationRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, session_id, timestamp, user_message, assistant_response,
		       tokens_used, processing_time, model_used, success,
		       COALESCE(error_message, ''), COALESCE(error_type, ''),
		       COALESCE(client_ip, ''), COALESCE(client_agent, '')
		FROM conversation_logs
		WHERE session_id = $1 AND success = true
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat: select history failed: %w", err)
	}
	defer rows.Close()

	var records []ConversationRecord
	for rows.Next() {
		var rec ConversationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Timestamp,
			&rec.UserMessage,
			&rec.AssistantResponse,
			&rec.TokensUsed,
			&rec.ProcessingTime,
			&rec.ModelUsed,
			&rec.Success,
			&rec.ErrorMessage,
			&rec.ErrorType,
			&rec.ClientIP,
			&rec.ClientAgent,
		); err != nil {
			return nil, fmt.Errorf("chat: scan history row failed: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: iterate history failed: %w", err)
	}
	return records, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
