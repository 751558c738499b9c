package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockLLMClient serves the same Claude models through the Bedrock
// Converse API, for deployments without direct Anthropic access.
type BedrockLLMClient struct {
	api bedrockConverseAPI
	// modelOverride replaces the requested model id when set; Bedrock model
	// ids differ from Anthropic's public names.
	modelOverride string
}

func NewBedrockLLMClient(api bedrockConverseAPI, modelOverride string) *BedrockLLMClient {
	if api == nil {
		panic("chat: bedrock converse client cannot be nil")
	}
	return &BedrockLLMClient{api: api, modelOverride: strings.TrimSpace(modelOverride)}
}

func (c *BedrockLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := req.Model
	if c.modelOverride != "" {
		model = c.modelOverride
	}
	if strings.TrimSpace(model) == "" {
		return LLMResponse{}, errors.New("chat: bedrock model id is required")
	}

	systemBlocks := make([]brtypes.SystemContentBlock, 0, len(req.System))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: block})
	}

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		switch msg.Role {
		case ChatRoleSystem:
			systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: content})
			continue
		case ChatRoleUser:
			messages = append(messages, brtypes.Message{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: content},
				},
			})
		case ChatRoleAssistant:
			messages = append(messages, brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: content},
				},
			})
		default:
			return LLMResponse{}, fmt.Errorf("chat: unsupported role %q", msg.Role)
		}
	}

	var inference *brtypes.InferenceConfiguration
	if req.MaxTokens > 0 {
		inference = &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(req.MaxTokens)}
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(model),
		System:          systemBlocks,
		Messages:        messages,
		InferenceConfig: inference,
	})
	if err != nil {
		return LLMResponse{}, classifyBedrockError(err)
	}

	text, err := bedrockOutputText(out)
	if err != nil {
		return LLMResponse{}, err
	}

	resp := LLMResponse{Text: text}
	if out.StopReason != "" {
		resp.StopReason = string(out.StopReason)
	}
	if out.Usage != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int32OrZero(out.Usage.InputTokens),
			OutputTokens: int32OrZero(out.Usage.OutputTokens),
			TotalTokens:  int32OrZero(out.Usage.TotalTokens),
		}
	}
	return resp, nil
}

func classifyBedrockError(err error) *ProviderError {
	var throttle *brtypes.ThrottlingException
	if errors.As(err, &throttle) {
		return &ProviderError{Kind: ProviderRateLimited, Message: aws.ToString(throttle.Message), RetryAfter: providerRetryHint, Err: err}
	}
	var quota *brtypes.ServiceQuotaExceededException
	if errors.As(err, &quota) {
		return &ProviderError{Kind: ProviderRateLimited, Message: aws.ToString(quota.Message), RetryAfter: providerRetryHint, Err: err}
	}
	var unavailable *brtypes.ServiceUnavailableException
	if errors.As(err, &unavailable) {
		return &ProviderError{Kind: ProviderUnavailable, Message: aws.ToString(unavailable.Message), Err: err}
	}
	var notReady *brtypes.ModelNotReadyException
	if errors.As(err, &notReady) {
		return &ProviderError{Kind: ProviderUnavailable, Message: aws.ToString(notReady.Message), Err: err}
	}
	var internal *brtypes.InternalServerException
	if errors.As(err, &internal) {
		return &ProviderError{Kind: ProviderUnavailable, Message: aws.ToString(internal.Message), Err: err}
	}
	return &ProviderError{Kind: ProviderInternal, Err: err}
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", &ProviderError{Kind: ProviderInternal, Message: "empty converse output"}
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", &ProviderError{Kind: ProviderInternal, Message: fmt.Sprintf("unexpected output type %T", out.Output)}
	}
	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}
	return text.String(), nil
}

func int32OrZero(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
