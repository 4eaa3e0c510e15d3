package dispatch

import (
	"context"
	"fmt"
	"time"
)

// MockHandler returns deterministic results for local runs and tests.
type MockHandler struct {
	name    string
	fail    bool
	errMsg  string
	latency time.Duration
}

// NewMockHandler creates a handler that always succeeds.
func NewMockHandler(name string) *MockHandler {
	return &MockHandler{name: name}
}

// NewFailingMockHandler creates a handler that always fails with the message.
func NewFailingMockHandler(name, errMsg string) *MockHandler {
	return &MockHandler{name: name, fail: true, errMsg: errMsg}
}

// WithLatency makes every call sleep first, for timeout tests.
func (h *MockHandler) WithLatency(d time.Duration) *MockHandler {
	h.latency = d
	return h
}

// Handle returns a canned result echoing the request.
func (h *MockHandler) Handle(ctx context.Context, req Request) (*Result, error) {
	if h.latency > 0 {
		select {
		case <-time.After(h.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if h.fail {
		return &Result{Success: false, ErrorMessage: h.errMsg}, nil
	}
	return &Result{
		Success: true,
		Output:  fmt.Sprintf("%s handled: %s", h.name, req.Text),
	}, nil
}
