package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultUserAgent        = "claude-agent/1.0"

	// providerRetryHint is used when a 429 carries no Retry-After header.
	providerRetryHint = 60 * time.Second
)

// AnthropicConfig controls how the Anthropic client behaves.
type AnthropicConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  string
}

// AnthropicClient wraps the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewAnthropicClient creates a configured client with sane defaults.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("chat: anthropic API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &AnthropicClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int32              `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int32 `json:"input_tokens"`
		OutputTokens int32 `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the message sequence to the Messages API and returns the
// assistant text plus token usage. Failures are classified as ProviderError.
func (c *AnthropicClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return LLMResponse{}, errors.New("chat: anthropic model is required")
	}

	messages := make([]anthropicMessage, 0, len(req.Messages))
	system := make([]string, 0, len(req.System))
	system = append(system, req.System...)
	for _, msg := range req.Messages {
		if msg.Role == ChatRoleSystem {
			system = append(system, msg.Content)
			continue
		}
		messages = append(messages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    strings.Join(system, "\n\n"),
		Messages:  messages,
	})
	if err != nil {
		return LLMResponse{}, fmt.Errorf("chat: marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("chat: build anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return LLMResponse{}, ctx.Err()
		}
		return LLMResponse{}, &ProviderError{Kind: ProviderUnavailable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return LLMResponse{}, &ProviderError{Kind: ProviderUnavailable, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return LLMResponse{}, decodeAnthropicError(resp, data)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return LLMResponse{}, &ProviderError{Kind: ProviderInternal, Err: fmt.Errorf("decode response: %w", err)}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	usage := TokenUsage{
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return LLMResponse{
		Text:       text.String(),
		Usage:      usage,
		StopReason: parsed.StopReason,
	}, nil
}

func decodeAnthropicError(resp *http.Response, data []byte) *ProviderError {
	var parsed anthropicErrorBody
	_ = json.Unmarshal(data, &parsed)
	message := parsed.Error.Message
	if message == "" {
		message = strings.TrimSpace(string(data))
	}

	pe := &ProviderError{
		StatusCode: resp.StatusCode,
		Message:    message,
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		pe.Kind = ProviderRateLimited
		pe.RetryAfter = retryAfterHint(resp.Header.Get("Retry-After"))
	// 529 is Anthropic's "overloaded" status.
	case resp.StatusCode >= 500:
		pe.Kind = ProviderUnavailable
	default:
		pe.Kind = ProviderInternal
	}
	return pe
}

func retryAfterHint(header string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return providerRetryHint
}
