package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhart/claude-agent/internal/observability/metrics"
	"github.com/oakhart/claude-agent/pkg/logging"
)

type fakeSessionReader struct {
	rec *SessionRecord
	err error
}

func (f *fakeSessionReader) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	return f.rec, f.err
}

func newTestHandler(llm LLMClient, conv *fakeConversationStore, sessions sessionReader) http.Handler {
	svc := newTestService(llm, conv, &fakeSessionStore{})
	m := metrics.NewChatMetrics(prometheus.NewRegistry())
	h := NewHandler(svc, sessions, "claude-3-sonnet-20240229", m, logging.Default())

	r := chi.NewRouter()
	r.Post("/chat", h.Chat)
	r.Get("/sessions/{sessionID}", h.GetSession)
	r.Get("/sessions/{sessionID}/history", h.GetHistory)
	return r
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatEndToEnd(t *testing.T) {
	llm := &stubLLM{resp: LLMResponse{Text: "Hello!", Usage: TokenUsage{InputTokens: 9, OutputTokens: 3, TotalTokens: 12}}}
	conv := &fakeConversationStore{}
	handler := newTestHandler(llm, conv, &fakeSessionReader{})

	rec := postChat(t, handler, `{"message": "Hi there"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "Hello!", resp.Response)
	assert.Greater(t, resp.TokensUsed, 0)
	_, err := uuid.Parse(resp.SessionID)
	assert.NoError(t, err, "fresh request should get a generated UUID session")
	assert.Equal(t, "claude-3-sonnet-20240229", resp.ModelUsed)

	// One conversation row persisted for the exchange.
	require.Len(t, conv.inserted, 1)
	assert.True(t, conv.inserted[0].Success)
}

func TestChatValidationError(t *testing.T) {
	handler := newTestHandler(&stubLLM{}, &fakeConversationStore{}, &fakeSessionReader{})

	rec := postChat(t, handler, `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestChatMalformedBody(t *testing.T) {
	handler := newTestHandler(&stubLLM{}, &fakeConversationStore{}, &fakeSessionReader{})

	rec := postChat(t, handler, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatProviderRateLimit(t *testing.T) {
	llm := &stubLLM{err: &ProviderError{Kind: ProviderRateLimited, Message: "quota", RetryAfter: 30 * time.Second}}
	handler := newTestHandler(llm, &fakeConversationStore{}, &fakeSessionReader{})

	rec := postChat(t, handler, `{"message": "hi"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "api_rate_limit", body["error_type"])
	assert.Equal(t, float64(30), body["retry_after"])
}

func TestChatProviderUnavailable(t *testing.T) {
	llm := &stubLLM{err: &ProviderError{Kind: ProviderUnavailable, Message: "overloaded"}}
	handler := newTestHandler(llm, &fakeConversationStore{}, &fakeSessionReader{})

	rec := postChat(t, handler, `{"message": "hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "api_error")
}

func TestChatGenericFailureHidesDetail(t *testing.T) {
	llm := &stubLLM{err: &ProviderError{Kind: ProviderInternal, Message: "secret internal detail"}}
	handler := newTestHandler(llm, &fakeConversationStore{}, &fakeSessionReader{})

	rec := postChat(t, handler, `{"message": "hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret internal detail")
}

func TestGetSession(t *testing.T) {
	reader := &fakeSessionReader{rec: &SessionRecord{
		SessionUUID:   "session-1",
		Status:        SessionStatusActive,
		TotalMessages: 3,
		TotalTokens:   120,
	}}
	handler := newTestHandler(&stubLLM{}, &fakeConversationStore{}, reader)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/session-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body SessionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session-1", body.SessionUUID)
	assert.Equal(t, 3, body.TotalMessages)
}

func TestGetSessionNotFound(t *testing.T) {
	handler := newTestHandler(&stubLLM{}, &fakeConversationStore{}, &fakeSessionReader{err: ErrSessionNotFound})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistory(t *testing.T) {
	conv := &fakeConversationStore{
		history: []ConversationRecord{
			{UserMessage: "newest", AssistantResponse: "b", TokensUsed: 2},
			{UserMessage: "oldest", AssistantResponse: "a", TokensUsed: 1},
		},
	}
	handler := newTestHandler(&stubLLM{}, conv, &fakeSessionReader{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/session-1/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SessionID     string `json:"session_id"`
		Conversations []struct {
			UserMessage string `json:"user_message"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session-1", body.SessionID)
	require.Len(t, body.Conversations, 2)
	assert.Equal(t, "oldest", body.Conversations[0].UserMessage)
}

func TestGetHistoryInvalidLimit(t *testing.T) {
	handler := newTestHandler(&stubLLM{}, &fakeConversationStore{}, &fakeSessionReader{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s/history?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s/history?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
