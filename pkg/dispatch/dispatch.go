// Package dispatch invokes the external handler selected by a routing
// decision and measures the call.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zen-systems/promptroute/pkg/route"
)

// ErrTimeout reports that the handler exceeded the dispatcher's boundary
// timeout. The in-flight call is left to finish on its own; its result is
// simply not delivered.
var ErrTimeout = errors.New("handler timed out")

// Request is the payload forwarded to a handler.
type Request struct {
	Text      string         `json:"request_text"`
	UserID    string         `json:"user_id"`
	ProjectID string         `json:"project_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Result is a handler outcome. A failed handler reports Success=false with
// the error surfaced in ErrorMessage, never swallowed.
type Result struct {
	Success      bool   `json:"success"`
	Output       string `json:"result"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Handler is one of the four external execution pipelines. Retry policy, if
// any, belongs to the handler; the dispatcher never retries.
type Handler interface {
	Handle(ctx context.Context, req Request) (*Result, error)
}

// Dispatcher selects and invokes exactly one handler per request.
type Dispatcher struct {
	handlers map[route.Route]Handler
	timeout  time.Duration
	log      *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each handler call. Zero disables the boundary timeout.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.timeout = d }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(log *slog.Logger) Option {
	return func(dp *Dispatcher) { dp.log = log }
}

// New creates a dispatcher over the handler set.
func New(handlers map[route.Route]Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: handlers,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch invokes the handler for the decision's route and returns the
// result with the wall-clock duration of the handler call alone; time spent
// in classification, adjustment, or cache checks is excluded by construction.
//
// The returned error is non-nil for handler errors and timeouts; the Result
// is always populated so failures can still be recorded as feedback.
func (d *Dispatcher) Dispatch(ctx context.Context, decision *route.Decision, req Request) (*Result, int64, error) {
	handler, ok := d.handlers[decision.Route]
	if !ok {
		return &Result{Success: false, ErrorMessage: fmt.Sprintf("no handler for route %s", decision.Route)},
			0, fmt.Errorf("no handler registered for route %s", decision.Route)
	}

	start := time.Now()
	res, err := d.call(ctx, handler, req)
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		return &Result{Success: false, ErrorMessage: err.Error()}, durationMs, err
	}
	if res == nil {
		err := fmt.Errorf("handler for route %s returned no result", decision.Route)
		return &Result{Success: false, ErrorMessage: err.Error()}, durationMs, err
	}
	if !res.Success {
		msg := res.ErrorMessage
		if msg == "" {
			msg = "handler reported failure"
			res.ErrorMessage = msg
		}
		return res, durationMs, fmt.Errorf("handler failed: %s", msg)
	}
	return res, durationMs, nil
}

type handlerReply struct {
	res *Result
	err error
}

// call runs the handler, bounded by the dispatcher timeout when one is set.
// On timeout the handler goroutine runs to completion in the background so
// its side effects are not torn down mid-flight.
func (d *Dispatcher) call(ctx context.Context, handler Handler, req Request) (*Result, error) {
	if d.timeout <= 0 {
		return handler.Handle(ctx, req)
	}

	done := make(chan handlerReply, 1)
	go func() {
		res, err := handler.Handle(context.WithoutCancel(ctx), req)
		done <- handlerReply{res: res, err: err}
	}()

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case reply := <-done:
		return reply.res, reply.err
	case <-timer.C:
		d.log.Warn("handler exceeded dispatch timeout, abandoning result", "timeout", d.timeout)
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
