package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zen-systems/promptroute/pkg/route"
)

func testHandlers() map[route.Route]Handler {
	return map[route.Route]Handler{
		route.DirectEdit:   NewMockHandler("direct-edit"),
		route.FeatureBuild: NewMockHandler("feature-build"),
		route.MetaChat:     NewMockHandler("meta-chat"),
		route.Refactor:     NewMockHandler("refactor"),
	}
}

func TestDispatchSuccess(t *testing.T) {
	d := New(testHandlers())

	res, durationMs, err := d.Dispatch(context.Background(),
		&route.Decision{Route: route.DirectEdit},
		Request{Text: "change button color", UserID: "u"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Output, "change button color") {
		t.Fatalf("unexpected output: %q", res.Output)
	}
	if durationMs < 0 {
		t.Fatalf("negative duration: %d", durationMs)
	}
}

func TestDispatchHandlerFailureSurfaced(t *testing.T) {
	handlers := testHandlers()
	handlers[route.Refactor] = NewFailingMockHandler("refactor", "syntax tree unavailable")
	d := New(handlers)

	res, _, err := d.Dispatch(context.Background(),
		&route.Decision{Route: route.Refactor},
		Request{Text: "refactor everything", UserID: "u"})
	if err == nil {
		t.Fatalf("expected error for failed handler")
	}
	if res.Success {
		t.Fatalf("failure must not be swallowed")
	}
	if !strings.Contains(res.ErrorMessage, "syntax tree unavailable") {
		t.Fatalf("handler error not surfaced: %q", res.ErrorMessage)
	}
}

func TestDispatchMissingHandler(t *testing.T) {
	d := New(map[route.Route]Handler{})

	res, _, err := d.Dispatch(context.Background(),
		&route.Decision{Route: route.MetaChat},
		Request{Text: "what is this", UserID: "u"})
	if err == nil {
		t.Fatalf("expected error for missing handler")
	}
	if res == nil || res.Success {
		t.Fatalf("expected failed result, got %+v", res)
	}
}

func TestDispatchTimeout(t *testing.T) {
	handlers := testHandlers()
	handlers[route.FeatureBuild] = NewMockHandler("slow").WithLatency(200 * time.Millisecond)
	d := New(handlers, WithTimeout(20*time.Millisecond))

	res, _, err := d.Dispatch(context.Background(),
		&route.Decision{Route: route.FeatureBuild},
		Request{Text: "build a login page", UserID: "u"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if res.Success {
		t.Fatalf("timed-out dispatch must report failure")
	}
}

func TestDispatchMeasuresHandlerOnly(t *testing.T) {
	handlers := testHandlers()
	handlers[route.MetaChat] = NewMockHandler("slow").WithLatency(50 * time.Millisecond)
	d := New(handlers)

	_, durationMs, err := d.Dispatch(context.Background(),
		&route.Decision{Route: route.MetaChat},
		Request{Text: "how does deploy work", UserID: "u"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if durationMs < 50 {
		t.Fatalf("duration should cover the handler call, got %dms", durationMs)
	}
}

func TestDispatchCancelledCaller(t *testing.T) {
	handlers := testHandlers()
	handlers[route.Refactor] = NewMockHandler("slow").WithLatency(time.Second)
	d := New(handlers, WithTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := d.Dispatch(ctx, &route.Decision{Route: route.Refactor}, Request{Text: "refactor it", UserID: "u"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
