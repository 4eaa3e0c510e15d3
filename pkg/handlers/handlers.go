// Package handlers provides the reference implementations of the four route
// handlers. Each one constructs a route-specific prompt from the request and
// forwards it to the AI inference gateway; the routing core only sees the
// dispatch.Handler contract, so deployments can swap these out wholesale.
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zen-systems/promptroute/pkg/dispatch"
	"github.com/zen-systems/promptroute/pkg/gateway"
	"github.com/zen-systems/promptroute/pkg/route"
)

// promptBuilder renders the gateway prompt for one route class.
type promptBuilder func(req dispatch.Request) string

// GatewayHandler forwards a constructed prompt to a gateway client. A
// transient gateway failure is retried once; anything else is surfaced as a
// failed result.
type GatewayHandler struct {
	client gateway.Client
	model  string
	build  promptBuilder
}

// Handle constructs the prompt, calls the gateway, and normalizes the reply.
func (h *GatewayHandler) Handle(ctx context.Context, req dispatch.Request) (*dispatch.Result, error) {
	prompt := h.build(req)

	completion, err := h.client.Complete(ctx, h.model, prompt)
	if err != nil && gateway.IsTransient(err) {
		completion, err = h.client.Complete(ctx, h.model, prompt)
	}
	if err != nil {
		return &dispatch.Result{Success: false, ErrorMessage: err.Error()}, nil
	}
	if completion == nil || completion.Text == "" {
		return &dispatch.Result{Success: false, ErrorMessage: "gateway returned empty completion"}, nil
	}
	return &dispatch.Result{Success: true, Output: completion.Text}, nil
}

// NewDirectEditHandler builds the surgical-edit handler: minimal diff-style
// changes, nothing else touched.
func NewDirectEditHandler(client gateway.Client, model string) *GatewayHandler {
	return &GatewayHandler{client: client, model: model, build: func(req dispatch.Request) string {
		var sb strings.Builder
		sb.WriteString("You are making one small, surgical edit to an existing web project.\n")
		sb.WriteString("Apply exactly the requested change and nothing else. Return only the changed code.\n\n")
		writeProjectContext(&sb, req)
		fmt.Fprintf(&sb, "Requested change:\n%s\n", req.Text)
		return sb.String()
	}}
}

// NewFeatureBuildHandler builds the full-generation handler.
func NewFeatureBuildHandler(client gateway.Client, model string) *GatewayHandler {
	return &GatewayHandler{client: client, model: model, build: func(req dispatch.Request) string {
		var sb strings.Builder
		sb.WriteString("You are building a complete feature for a web project.\n")
		sb.WriteString("Produce all files, markup, styles, and wiring the feature needs.\n\n")
		writeProjectContext(&sb, req)
		fmt.Fprintf(&sb, "Feature request:\n%s\n", req.Text)
		return sb.String()
	}}
}

// NewMetaChatHandler builds the conversational handler: it answers questions
// about the project rather than changing it.
func NewMetaChatHandler(client gateway.Client, model string) *GatewayHandler {
	return &GatewayHandler{client: client, model: model, build: func(req dispatch.Request) string {
		var sb strings.Builder
		sb.WriteString("You are answering a question about the user's web project.\n")
		sb.WriteString("Answer conversationally and do not generate or modify code.\n\n")
		writeProjectContext(&sb, req)
		fmt.Fprintf(&sb, "Question:\n%s\n", req.Text)
		return sb.String()
	}}
}

// NewRefactorHandler builds the restructuring handler: behavior-preserving
// improvements to existing code.
func NewRefactorHandler(client gateway.Client, model string) *GatewayHandler {
	return &GatewayHandler{client: client, model: model, build: func(req dispatch.Request) string {
		var sb strings.Builder
		sb.WriteString("You are refactoring part of a web project.\n")
		sb.WriteString("Preserve behavior exactly; improve structure, clarity, and efficiency.\n\n")
		writeProjectContext(&sb, req)
		fmt.Fprintf(&sb, "Refactoring request:\n%s\n", req.Text)
		return sb.String()
	}}
}

// ModelSet assigns a gateway model per route class.
type ModelSet struct {
	DirectEdit   string `yaml:"direct_edit"`
	FeatureBuild string `yaml:"feature_build"`
	MetaChat     string `yaml:"meta_chat"`
	Refactor     string `yaml:"refactor"`
}

// All builds the complete handler set over one gateway client. Empty model
// fields fall back to the client's first supported model.
func All(client gateway.Client, models ModelSet) map[route.Route]dispatch.Handler {
	fallback := ""
	if supported := client.Models(); len(supported) > 0 {
		fallback = supported[0]
	}
	model := func(m string) string {
		if m == "" {
			return fallback
		}
		return m
	}

	return map[route.Route]dispatch.Handler{
		route.DirectEdit:   NewDirectEditHandler(client, model(models.DirectEdit)),
		route.FeatureBuild: NewFeatureBuildHandler(client, model(models.FeatureBuild)),
		route.MetaChat:     NewMetaChatHandler(client, model(models.MetaChat)),
		route.Refactor:     NewRefactorHandler(client, model(models.Refactor)),
	}
}

func writeProjectContext(sb *strings.Builder, req dispatch.Request) {
	if req.ProjectID != "" {
		fmt.Fprintf(sb, "Project: %s\n", req.ProjectID)
	}
	if len(req.Context) > 0 {
		// Sorted so the same request always renders the same prompt.
		keys := make([]string, 0, len(req.Context))
		for k := range req.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Context:\n")
		for _, k := range keys {
			fmt.Fprintf(sb, "- %s: %v\n", k, req.Context[k])
		}
	}
	sb.WriteString("\n")
}
