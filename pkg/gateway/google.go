package gateway

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleClient implements Client for Gemini models.
type GoogleClient struct {
	client *genai.Client
}

// NewGoogleClient creates a Google Gemini gateway client.
func NewGoogleClient(apiKey string) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}
	return &GoogleClient{client: client}, nil
}

// Name returns the provider identifier.
func (c *GoogleClient) Name() string {
	return "google"
}

// Models returns the supported Gemini models.
func (c *GoogleClient) Models() []string {
	return []string{"gemini-2.0-pro"}
}

// Complete sends a prompt to Gemini.
func (c *GoogleClient) Complete(ctx context.Context, model string, prompt string) (*Completion, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var text string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}
	}

	return &Completion{Text: text, Provider: c.Name(), Model: model}, nil
}
