package gateway

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicClient implements Client for Claude models.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates an Anthropic gateway client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	return &AnthropicClient{client: anthropic.NewClient()}, nil
}

// Name returns the provider identifier.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Models returns the supported Claude models.
func (c *AnthropicClient) Models() []string {
	return []string{
		"claude-sonnet-4-20250514",
		"claude-opus-4-20250514",
	}
}

// Complete sends a prompt to Claude.
func (c *AnthropicClient) Complete(ctx context.Context, model string, prompt string) (*Completion, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &Completion{Text: text, Provider: c.Name(), Model: model}, nil
}
