// Package gateway provides clients for the external AI inference gateway
// the route handlers forward their constructed prompts to.
package gateway

import "context"

// Client is a connection to one inference provider behind the gateway.
type Client interface {
	// Complete sends a prompt to the model and returns the completion.
	Complete(ctx context.Context, model string, prompt string) (*Completion, error)

	// Name returns the provider identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Completion is a normalized gateway reply.
type Completion struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}
