package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oakhart/claude-agent/internal/observability/metrics"
	"github.com/oakhart/claude-agent/pkg/logging"
)

const defaultHistoryLimit = 50

type sessionReader interface {
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
}

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service      *Service
	sessions     sessionReader
	defaultModel string
	metrics      *metrics.ChatMetrics
	logger       *logging.Logger
}

// NewHandler creates a chat handler.
func NewHandler(service *Service, sessions sessionReader, defaultModel string, m *metrics.ChatMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:      service,
		sessions:     sessions,
		defaultModel: defaultModel,
		metrics:      m,
		logger:       logger,
	}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "validation_error")
		return
	}

	client := ClientInfo{
		IP:        clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	}
	in, err := req.Normalize(h.defaultModel, client)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	outcome := h.service.Converse(r.Context(), in)
	h.metrics.ObserveExchange(outcomeLabel(outcome), in.Model, outcome.ProcessingTime, outcome.TokensUsed)

	if outcome.Success {
		h.writeJSON(w, http.StatusOK, ChatResponse{
			Success:        true,
			Response:       outcome.Response,
			SessionID:      outcome.SessionID,
			TokensUsed:     outcome.TokensUsed,
			ProcessingTime: outcome.ProcessingTime,
			ModelUsed:      outcome.ModelUsed,
		})
		return
	}

	switch outcome.ErrorType {
	case ProviderRateLimited:
		h.writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       "API rate limit exceeded. Please try again later.",
			"error_type":  string(ProviderRateLimited),
			"retry_after": int(outcome.RetryAfter.Seconds()),
		})
	case ProviderUnavailable:
		h.writeError(w, http.StatusServiceUnavailable, "AI service temporarily unavailable. Please try again.", string(ProviderUnavailable))
	default:
		// Detail stays in the logs; callers get a generic message.
		h.writeError(w, http.StatusInternalServerError, "Internal server error occurred.", string(ProviderInternal))
	}
}

// GetSession handles GET /sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	rec, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			h.writeError(w, http.StatusNotFound, "Session not found", "")
			return
		}
		h.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to retrieve session", "")
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

type historyEntry struct {
	Timestamp         string  `json:"timestamp"`
	UserMessage       string  `json:"user_message"`
	AssistantResponse string  `json:"assistant_response"`
	TokensUsed        int     `json:"tokens_used"`
	ProcessingTime    float64 `json:"processing_time"`
}

// GetHistory handles GET /sessions/{sessionID}/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer", "validation_error")
			return
		}
		limit = parsed
	}

	records, err := h.service.History(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("failed to load history", "session_id", sessionID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to retrieve history", "")
		return
	}

	entries := make([]historyEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, historyEntry{
			Timestamp:         rec.Timestamp.UTC().Format(time.RFC3339Nano),
			UserMessage:       rec.UserMessage,
			AssistantResponse: rec.AssistantResponse,
			TokensUsed:        rec.TokensUsed,
			ProcessingTime:    rec.ProcessingTime,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    sessionID,
		"conversations": entries,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, errorType string) {
	body := map[string]any{"error": message, "status_code": status}
	if errorType != "" {
		body["error_type"] = errorType
	}
	h.writeJSON(w, status, body)
}

func outcomeLabel(o *Outcome) string {
	if o.Success {
		return "success"
	}
	return string(o.ErrorType)
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from X-Real-Ip /
	// X-Forwarded-For when present.
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
