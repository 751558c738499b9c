package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	out     *bedrockruntime.ConverseOutput
	err     error
	lastIn  *bedrockruntime.ConverseInput
	invoked int
}

func (f *fakeConverseAPI) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.lastIn = params
	f.invoked++
	return f.out, f.err
}

func converseTextOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: text},
				},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(8),
			OutputTokens: aws.Int32(4),
			TotalTokens:  aws.Int32(12),
		},
	}
}

func TestBedrockComplete(t *testing.T) {
	api := &fakeConverseAPI{out: converseTextOutput("hello from bedrock")}
	client := NewBedrockLLMClient(api, "")

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:     "anthropic.claude-3-sonnet-20240229-v1:0",
		System:    []string{"be helpful"},
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
		MaxTokens: 256,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello from bedrock", resp.Text)
	assert.Equal(t, int32(12), resp.Usage.TotalTokens)
	assert.Equal(t, string(brtypes.StopReasonEndTurn), resp.StopReason)

	require.NotNil(t, api.lastIn)
	assert.Equal(t, "anthropic.claude-3-sonnet-20240229-v1:0", aws.ToString(api.lastIn.ModelId))
	require.Len(t, api.lastIn.System, 1)
	require.NotNil(t, api.lastIn.InferenceConfig)
	assert.Equal(t, int32(256), aws.ToInt32(api.lastIn.InferenceConfig.MaxTokens))
}

func TestBedrockModelOverride(t *testing.T) {
	api := &fakeConverseAPI{out: converseTextOutput("ok")}
	client := NewBedrockLLMClient(api, "anthropic.claude-3-haiku-20240307-v1:0")

	_, err := client.Complete(context.Background(), LLMRequest{
		Model:    "claude-3-sonnet-20240229",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(api.lastIn.ModelId))
}

func TestBedrockErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ProviderErrorKind
	}{
		{"throttled", &brtypes.ThrottlingException{Message: aws.String("slow down")}, ProviderRateLimited},
		{"quota", &brtypes.ServiceQuotaExceededException{Message: aws.String("quota")}, ProviderRateLimited},
		{"unavailable", &brtypes.ServiceUnavailableException{Message: aws.String("down")}, ProviderUnavailable},
		{"model not ready", &brtypes.ModelNotReadyException{Message: aws.String("warming")}, ProviderUnavailable},
		{"internal", &brtypes.InternalServerException{Message: aws.String("oops")}, ProviderUnavailable},
		{"unknown", errors.New("who knows"), ProviderInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeConverseAPI{err: tt.err}
			client := NewBedrockLLMClient(api, "model")

			_, err := client.Complete(context.Background(), LLMRequest{
				Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
			})
			require.Error(t, err)
			assert.Equal(t, tt.want, ClassifyProviderError(err).Kind)
		})
	}
}

func TestBedrockEmptyOutput(t *testing.T) {
	api := &fakeConverseAPI{out: &bedrockruntime.ConverseOutput{}}
	client := NewBedrockLLMClient(api, "model")

	_, err := client.Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	assert.Equal(t, ProviderInternal, ClassifyProviderError(err).Kind)
}
