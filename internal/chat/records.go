package chat

import "time"

// Session lifecycle states stored in user_sessions.status.
const (
	SessionStatusActive   = "active"
	SessionStatusInactive = "inactive"
	SessionStatusExpired  = "expired"
)

// ClientInfo carries request metadata persisted alongside exchanges.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// ConversationRecord is one persisted exchange: a user message and the
// resulting assistant response or classified failure. Rows are immutable
// after insert.
type ConversationRecord struct {
	ID                int64     `json:"id"`
	SessionID         string    `json:"session_id"`
	Timestamp         time.Time `json:"timestamp"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	TokensUsed        int       `json:"tokens_used"`
	ProcessingTime    float64   `json:"processing_time"`
	ModelUsed         string    `json:"model_used"`
	Success           bool      `json:"success"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	ErrorType         string    `json:"error_type,omitempty"`
	ClientIP          string    `json:"client_ip,omitempty"`
	ClientAgent       string    `json:"client_agent,omitempty"`
}

// SessionRecord aggregates per-session counters. Mutated in place on every
// exchange; never pruned by the retention sweeper.
type SessionRecord struct {
	ID                  int64     `json:"-"`
	SessionUUID         string    `json:"session_id"`
	CreatedAt           time.Time `json:"created_at"`
	LastActivity        time.Time `json:"last_activity"`
	Status              string    `json:"status"`
	TotalMessages       int       `json:"total_messages"`
	TotalTokens         int       `json:"total_tokens"`
	TotalProcessingTime float64   `json:"total_processing_time"`
	TotalErrors         int       `json:"total_errors"`
	AvgResponseTime     float64   `json:"avg_response_time"`
	Rating              *int      `json:"rating,omitempty"`
}

// ExchangeStats is the per-exchange delta applied to a session's counters.
type ExchangeStats struct {
	Tokens         int
	ProcessingTime float64
	Failed         bool
}
