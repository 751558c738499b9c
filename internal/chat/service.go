package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/oakhart/claude-agent/pkg/logging"
)

// historyDepth is how many prior successful exchanges feed the prompt.
const historyDepth = 10

const defaultSystemPrompt = "You are Claude, a helpful AI assistant created by Anthropic. " +
	"You are running on a private server deployment. Be helpful, harmless, and honest in your responses."

const persistTimeout = 10 * time.Second

type conversationStore interface {
	Insert(ctx context.Context, rec *ConversationRecord) error
	RecentSuccessful(ctx context.Context, sessionID string, limit int) ([]ConversationRecord, error)
}

type sessionStore interface {
	Upsert(ctx context.Context, sessionID string, client ClientInfo, stats ExchangeStats) error
}

type errorRecorder interface {
	Record(ctx context.Context, level, errorType, message, sessionID string) error
}

// ConverseInput is a validated chat request handed to the orchestrator.
type ConverseInput struct {
	SessionID string
	Message   string
	Model     string
	MaxTokens int32
	Client    ClientInfo
}

// Outcome is the structured result of one exchange.
type Outcome struct {
	Success        bool
	Response       string
	SessionID      string
	TokensUsed     int
	ProcessingTime float64
	ModelUsed      string
	ErrorType      ProviderErrorKind
	ErrorMessage   string
	RetryAfter     time.Duration
}

// Service orchestrates chat exchanges: it assembles history into a prompt,
// invokes the LLM provider, and persists the outcome in the background.
type Service struct {
	llm           LLMClient
	conversations conversationStore
	sessions      sessionStore
	errlog        errorRecorder
	logger        *logging.Logger
	tracer        trace.Tracer
	systemPrompt  string

	// async runs persistence off the request path; tests replace it with a
	// synchronous runner.
	async func(fn func())
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(prompt string) ServiceOption {
	return func(s *Service) {
		if strings.TrimSpace(prompt) != "" {
			s.systemPrompt = prompt
		}
	}
}

// WithErrorRecorder wires persistence of provider failures into error_logs.
func WithErrorRecorder(rec errorRecorder) ServiceOption {
	return func(s *Service) { s.errlog = rec }
}

// NewService creates the conversation orchestrator.
func NewService(llm LLMClient, conversations conversationStore, sessions sessionStore, logger *logging.Logger, opts ...ServiceOption) *Service {
	if llm == nil {
		panic("chat: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		llm:           llm,
		conversations: conversations,
		sessions:      sessions,
		logger:        logger,
		tracer:        otel.Tracer("claude-agent.internal.chat"),
		systemPrompt:  defaultSystemPrompt,
		async:         func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Converse runs one exchange end to end. The returned Outcome is final once
// this method returns; background persistence failures are logged but never
// alter it.
func (s *Service) Converse(ctx context.Context, in ConverseInput) *Outcome {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "chat.converse")
	defer span.End()

	messages, err := s.buildMessages(ctx, sessionID, in.Message)
	if err != nil {
		s.logger.Error("failed to load conversation history", "session_id", sessionID, "error", err)
		outcome := s.failureOutcome(sessionID, in, ProviderInternal, "failed to load conversation history", time.Since(start))
		s.persist(in, outcome)
		return outcome
	}

	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:     in.Model,
		System:    []string{s.systemPrompt},
		Messages:  messages,
		MaxTokens: in.MaxTokens,
	})
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		pe := ClassifyProviderError(err)
		s.logger.Warn("llm call failed",
			"session_id", sessionID,
			"model", in.Model,
			"error_type", string(pe.Kind),
			"error", err,
		)
		outcome := s.failureOutcome(sessionID, in, pe.Kind, pe.Error(), elapsed)
		outcome.RetryAfter = pe.RetryAfter
		s.persist(in, outcome)
		return outcome
	}

	// An empty provider response is a valid zero-length reply; token usage
	// is still recorded.
	outcome := &Outcome{
		Success:        true,
		Response:       resp.Text,
		SessionID:      sessionID,
		TokensUsed:     int(resp.Usage.TotalTokens),
		ProcessingTime: elapsed.Seconds(),
		ModelUsed:      in.Model,
	}
	if outcome.TokensUsed == 0 {
		outcome.TokensUsed = int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	}
	s.persist(in, outcome)
	return outcome
}

// History returns up to limit past successful exchanges in chronological
// order (oldest first).
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]ConversationRecord, error) {
	records, err := s.conversations.RecentSuccessful(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	reverse(records)
	return records, nil
}

func (s *Service) buildMessages(ctx context.Context, sessionID, current string) ([]ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_history")
	defer span.End()

	recent, err := s.conversations.RecentSuccessful(ctx, sessionID, historyDepth)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	reverse(recent)

	messages := make([]ChatMessage, 0, 2*len(recent)+1)
	for _, rec := range recent {
		messages = append(messages,
			ChatMessage{Role: ChatRoleUser, Content: rec.UserMessage},
			ChatMessage{Role: ChatRoleAssistant, Content: rec.AssistantResponse},
		)
	}
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: current})
	return messages, nil
}

func (s *Service) failureOutcome(sessionID string, in ConverseInput, kind ProviderErrorKind, message string, elapsed time.Duration) *Outcome {
	return &Outcome{
		Success:        false,
		SessionID:      sessionID,
		TokensUsed:     0,
		ProcessingTime: elapsed.Seconds(),
		ModelUsed:      in.Model,
		ErrorType:      kind,
		ErrorMessage:   message,
	}
}

// persist writes the exchange and session counters off the request path.
// Each write gets its own transaction and a fresh context so a disconnecting
// caller cannot abort it; failures are logged and swallowed.
func (s *Service) persist(in ConverseInput, outcome *Outcome) {
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		rec := &ConversationRecord{
			SessionID:         outcome.SessionID,
			UserMessage:       in.Message,
			AssistantResponse: outcome.Response,
			TokensUsed:        outcome.TokensUsed,
			ProcessingTime:    outcome.ProcessingTime,
			ModelUsed:         outcome.ModelUsed,
			Success:           outcome.Success,
			ErrorMessage:      outcome.ErrorMessage,
			ErrorType:         string(outcome.ErrorType),
			ClientIP:          in.Client.IP,
			ClientAgent:       in.Client.UserAgent,
		}
		if s.conversations != nil {
			if err := s.conversations.Insert(ctx, rec); err != nil {
				s.logger.Error("failed to log conversation", "session_id", outcome.SessionID, "error", err)
			}
		}

		if s.sessions != nil {
			stats := ExchangeStats{
				Tokens:         outcome.TokensUsed,
				ProcessingTime: outcome.ProcessingTime,
				Failed:         !outcome.Success,
			}
			if err := s.sessions.Upsert(ctx, outcome.SessionID, in.Client, stats); err != nil {
				s.logger.Error("failed to update session stats", "session_id", outcome.SessionID, "error", err)
			}
		}

		if s.errlog != nil && !outcome.Success {
			if err := s.errlog.Record(ctx, "error", string(outcome.ErrorType), outcome.ErrorMessage, outcome.SessionID); err != nil {
				s.logger.Error("failed to record error log", "session_id", outcome.SessionID, "error", err)
			}
		}
	})
}

func reverse(records []ConversationRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
