package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxMessageLength = 4000

	minMaxTokens     = 10
	maxMaxTokens     = 4000
	defaultMaxTokens = 1000
)

// ChatRequest is the wire form of POST /chat. Field constraints mirror the
// request contract: message 1-4000 chars after trimming, max_tokens in
// [10,4000] when present.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens *int32 `json:"max_tokens,omitempty"`
}

// Normalize validates the request and applies defaults, returning the input
// the orchestrator accepts. Violations never reach the service.
func (r *ChatRequest) Normalize(defaultModel string, client ClientInfo) (ConverseInput, error) {
	message := strings.TrimSpace(r.Message)
	if message == "" {
		return ConverseInput{}, fmt.Errorf("message cannot be empty or just whitespace")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return ConverseInput{}, fmt.Errorf("message exceeds %d characters", maxMessageLength)
	}

	maxTokens := int32(defaultMaxTokens)
	if r.MaxTokens != nil {
		if *r.MaxTokens < minMaxTokens || *r.MaxTokens > maxMaxTokens {
			return ConverseInput{}, fmt.Errorf("max_tokens must be between %d and %d", minMaxTokens, maxMaxTokens)
		}
		maxTokens = *r.MaxTokens
	}

	model := strings.TrimSpace(r.Model)
	if model == "" {
		model = defaultModel
	}

	return ConverseInput{
		SessionID: strings.TrimSpace(r.SessionID),
		Message:   message,
		Model:     model,
		MaxTokens: maxTokens,
		Client:    client,
	}, nil
}

// ChatResponse is the wire form of a completed exchange.
type ChatResponse struct {
	Success        bool    `json:"success"`
	Response       string  `json:"response,omitempty"`
	SessionID      string  `json:"session_id"`
	TokensUsed     int     `json:"tokens_used"`
	ProcessingTime float64 `json:"processing_time"`
	ModelUsed      string  `json:"model_used"`
	Error          string  `json:"error,omitempty"`
	ErrorType      string  `json:"error_type,omitempty"`
}
