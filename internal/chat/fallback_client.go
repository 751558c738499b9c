package chat

import (
	"context"
	"errors"

	"github.com/oakhart/claude-agent/pkg/logging"
)

// FallbackLLMClient wraps a primary LLM client with a secondary provider
// tried when the primary fails. Rate-limit rejections from the primary are
// returned as-is: retrying them elsewhere would hide quota pressure from the
// caller, who is expected to back off.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient creates a fallback-enabled LLM client. If fallback is
// nil, the client only uses the primary provider.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	if c.fallback == nil {
		return LLMResponse{}, err
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Kind == ProviderRateLimited {
		return LLMResponse{}, err
	}

	c.logger.Warn("primary LLM failed, attempting fallback", "error", err.Error())

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}
