package chat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model     string
	System    []string
	Messages  []ChatMessage
	MaxTokens int32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// ProviderErrorKind classifies upstream LLM failures.
type ProviderErrorKind string

const (
	// ProviderRateLimited means the upstream rejected the call for quota
	// reasons; callers should retry after the hinted delay.
	ProviderRateLimited ProviderErrorKind = "api_rate_limit"
	// ProviderUnavailable is a transient upstream service failure.
	ProviderUnavailable ProviderErrorKind = "api_error"
	// ProviderInternal covers malformed responses and everything else.
	ProviderInternal ProviderErrorKind = "general_error"
)

// ProviderError is a classified failure from an LLM provider.
type ProviderError struct {
	Kind       ProviderErrorKind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chat: provider error (%s): %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("chat: provider error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("chat: provider error (%s)", e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ClassifyProviderError extracts the provider classification from err,
// defaulting to ProviderInternal for unrecognized failures.
func ClassifyProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Kind: ProviderInternal, Err: err}
}
