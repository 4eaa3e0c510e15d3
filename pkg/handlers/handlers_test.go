package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zen-systems/promptroute/pkg/dispatch"
	"github.com/zen-systems/promptroute/pkg/gateway"
	"github.com/zen-systems/promptroute/pkg/route"
)

func TestHandlersForwardRequestText(t *testing.T) {
	client := gateway.NewMockClient()
	set := All(client, ModelSet{})

	req := dispatch.Request{
		Text:      "change the header color to blue",
		UserID:    "u-1",
		ProjectID: "proj-42",
	}

	for _, r := range route.All() {
		handler, ok := set[r]
		if !ok {
			t.Fatalf("no handler for route %s", r)
		}
		result, err := handler.Handle(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: Handle returned error: %v", r, err)
		}
		if !result.Success {
			t.Fatalf("%s: expected success, got error %q", r, result.ErrorMessage)
		}
		if !strings.Contains(result.Output, req.Text) {
			t.Errorf("%s: prompt did not include request text: %q", r, result.Output)
		}
		if !strings.Contains(result.Output, "proj-42") {
			t.Errorf("%s: prompt did not include project ID", r)
		}
	}
}

func TestHandlerRetriesTransientFailure(t *testing.T) {
	client := gateway.NewMockClient().FailWith(&gateway.Error{
		Status:    503,
		Temporary: true,
		Err:       errors.New("upstream overloaded"),
	})
	handler := NewDirectEditHandler(client, "mock-1")

	result, err := handler.Handle(context.Background(), dispatch.Request{Text: "fix typo"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure when gateway keeps erroring")
	}
	if client.Calls != 2 {
		t.Errorf("expected one retry (2 calls), got %d", client.Calls)
	}
}

func TestHandlerDoesNotRetryPermanentFailure(t *testing.T) {
	client := gateway.NewMockClient().FailWith(&gateway.Error{
		Status: 401,
		Err:    errors.New("invalid API key"),
	})
	handler := NewFeatureBuildHandler(client, "mock-1")

	result, err := handler.Handle(context.Background(), dispatch.Request{Text: "add a login page"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure")
	}
	if client.Calls != 1 {
		t.Errorf("expected no retry (1 call), got %d", client.Calls)
	}
	if !strings.Contains(result.ErrorMessage, "invalid API key") {
		t.Errorf("error message lost: %q", result.ErrorMessage)
	}
}

func TestAllFallsBackToClientModel(t *testing.T) {
	client := gateway.NewMockClient()
	set := All(client, ModelSet{MetaChat: "mock-special"})

	meta := set[route.MetaChat].(*GatewayHandler)
	if meta.model != "mock-special" {
		t.Errorf("expected configured model, got %q", meta.model)
	}
	edit := set[route.DirectEdit].(*GatewayHandler)
	if edit.model != "mock-1" {
		t.Errorf("expected fallback model mock-1, got %q", edit.model)
	}
}

func TestHandlerIncludesContextValues(t *testing.T) {
	client := gateway.NewMockClient()
	handler := NewMetaChatHandler(client, "mock-1")

	result, err := handler.Handle(context.Background(), dispatch.Request{
		Text:    "what framework is this using?",
		Context: map[string]any{"framework": "react"},
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !strings.Contains(result.Output, "framework: react") {
		t.Errorf("prompt did not include context values: %q", result.Output)
	}
}

func TestHandlerPromptIsDeterministic(t *testing.T) {
	client := gateway.NewMockClient()
	handler := NewRefactorHandler(client, "mock-1")

	req := dispatch.Request{
		Text: "clean up the checkout flow",
		Context: map[string]any{
			"framework": "react",
			"bundler":   "vite",
			"language":  "typescript",
			"styling":   "tailwind",
		},
	}

	first, err := handler.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	for i := 0; i < 20; i++ {
		result, err := handler.Handle(context.Background(), req)
		if err != nil {
			t.Fatalf("Handle returned error: %v", err)
		}
		if result.Output != first.Output {
			t.Fatalf("prompt not deterministic:\n%q\nvs\n%q", first.Output, result.Output)
		}
	}
	if idx := strings.Index(first.Output, "bundler"); idx == -1 || idx > strings.Index(first.Output, "framework") {
		t.Errorf("context keys not sorted: %q", first.Output)
	}
}
