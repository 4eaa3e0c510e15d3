package gateway

import (
	"context"
	"fmt"
)

// MockClient returns deterministic completions for local runs and tests.
type MockClient struct {
	responses       map[string]string
	defaultResponse string
	err             error
	Calls           int
}

// NewMockClient creates a mock client with a default response.
func NewMockClient() *MockClient {
	return &MockClient{
		responses:       make(map[string]string),
		defaultResponse: "mock completion:",
	}
}

// NewMockClientWithResponses creates a mock client with predefined responses.
func NewMockClientWithResponses(responses map[string]string, defaultResponse string) *MockClient {
	if defaultResponse == "" {
		defaultResponse = "mock completion:"
	}
	return &MockClient{responses: responses, defaultResponse: defaultResponse}
}

// FailWith makes every Complete call return err.
func (c *MockClient) FailWith(err error) *MockClient {
	c.err = err
	return c
}

// Name returns the provider identifier.
func (c *MockClient) Name() string { return "mock" }

// Models returns the supported mock models.
func (c *MockClient) Models() []string { return []string{"mock-1"} }

// Complete returns a deterministic completion for the prompt.
func (c *MockClient) Complete(_ context.Context, model string, prompt string) (*Completion, error) {
	c.Calls++
	if c.err != nil {
		return nil, c.err
	}
	if model == "" {
		model = "mock-1"
	}
	if response, ok := c.responses[prompt]; ok {
		return &Completion{Text: response, Provider: c.Name(), Model: model}, nil
	}
	return &Completion{
		Text:     fmt.Sprintf("%s\n%s", c.defaultResponse, prompt),
		Provider: c.Name(),
		Model:    model,
	}, nil
}
