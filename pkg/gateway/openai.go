package gateway

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIClient implements Client for OpenAI models.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates an OpenAI gateway client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return &OpenAIClient{client: openai.NewClient()}, nil
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns the supported OpenAI models.
func (c *OpenAIClient) Models() []string {
	return []string{
		"gpt-5.2-instant",
		"gpt-5.2-thinking",
		"gpt-5.2-codex",
	}
}

// Complete sends a prompt to OpenAI.
func (c *OpenAIClient) Complete(ctx context.Context, model string, prompt string) (*Completion, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(4096),
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &Completion{Text: resp.Choices[0].Message.Content, Provider: c.Name(), Model: model}, nil
}
