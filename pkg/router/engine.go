// Package router orchestrates the per-request pipeline: classify, adjust
// with user preferences, consult the result cache, dispatch to a handler,
// and record the outcome as learning signal.
package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/zen-systems/promptroute/pkg/cache"
	"github.com/zen-systems/promptroute/pkg/classifier"
	"github.com/zen-systems/promptroute/pkg/dispatch"
	"github.com/zen-systems/promptroute/pkg/feedback"
	"github.com/zen-systems/promptroute/pkg/logging"
	"github.com/zen-systems/promptroute/pkg/preference"
	"github.com/zen-systems/promptroute/pkg/route"
)

// ErrMissingUser is returned when the inbound request carries no user id.
var ErrMissingUser = errors.New("user id is required")

// Response is the reply to the caller. The caller always receives a decision
// and a result-or-error: internal adaptation, caching, and recording
// failures degrade to "classify correctly, skip the optimization" rather
// than aborting the request.
type Response struct {
	Success    bool            `json:"success"`
	Cached     bool            `json:"cached"`
	Decision   *route.Decision `json:"decision"`
	Result     string          `json:"result"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

// Engine wires the five pipeline components. Every dependency is injected;
// the engine holds no ambient state of its own, so concurrent Handle calls
// share nothing but the stores, which guard themselves.
type Engine struct {
	preferences preference.Store
	adapter     *preference.Adapter
	cache       *cache.Cache
	dispatcher  *dispatch.Dispatcher
	recorder    *feedback.Recorder
	log         *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates the routing engine from its five collaborators.
func NewEngine(
	prefs preference.Store,
	adapter *preference.Adapter,
	resultCache *cache.Cache,
	dispatcher *dispatch.Dispatcher,
	recorder *feedback.Recorder,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		preferences: prefs,
		adapter:     adapter,
		cache:       resultCache,
		dispatcher:  dispatcher,
		recorder:    recorder,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle runs one request through the pipeline. It is safe for any number
// of concurrent callers; each invocation is an independent unit of work.
//
// The returned error is non-nil only for invalid input. Handler failures
// come back as a Response with Success=false and the handler's error
// surfaced, because a failed dispatch is still a complete routing outcome
// (and a recorded one: failures are valuable learning signal).
func (e *Engine) Handle(ctx context.Context, req dispatch.Request) (*Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, classifier.ErrEmptyRequest
	}
	if req.UserID == "" {
		return nil, ErrMissingUser
	}

	log := logging.WithRequest(e.log, uuid.New().String(), req.UserID, req.ProjectID)

	decision, err := classifier.Classify(req.Text)
	if err != nil {
		return nil, err
	}

	adjusted := e.adjust(ctx, log, decision, req.UserID)
	log = logging.WithRoute(log, adjusted.Route.String(), adjusted.Confidence)

	signature := cache.Signature(req.Text, req.ProjectID, req.UserID)
	if entry, hit := e.cache.Lookup(ctx, signature, adjusted.Route); hit {
		log.Info("request served from cache")
		return &Response{
			Success:  true,
			Cached:   true,
			Decision: adjusted,
			Result:   entry.Result,
		}, nil
	}

	result, durationMs, dispatchErr := e.dispatcher.Dispatch(ctx, adjusted, req)
	success := dispatchErr == nil && result.Success

	// Failures feed the same aggregates as successes; a recording failure is
	// logged inside the recorder and never retracts the computed response.
	if err := e.recorder.Record(ctx, req.UserID, adjusted.Route, success, durationMs); err != nil {
		log.Warn("feedback recording incomplete", "error", err)
	}

	if !success {
		log.Warn("dispatch failed", "duration_ms", durationMs, "error", result.ErrorMessage)
		return &Response{
			Success:    false,
			Decision:   adjusted,
			Error:      result.ErrorMessage,
			DurationMs: durationMs,
		}, nil
	}

	e.cache.StoreResult(ctx, signature, adjusted.Route, result.Output)
	log.Info("request dispatched", "duration_ms", durationMs)

	return &Response{
		Success:    true,
		Decision:   adjusted,
		Result:     result.Output,
		DurationMs: durationMs,
	}, nil
}

// adjust loads the user's aggregates and applies the preference rules. An
// unreachable aggregate store degrades to the unadjusted decision: adaptation
// is an optimization, not a correctness requirement.
func (e *Engine) adjust(ctx context.Context, log *slog.Logger, decision *route.Decision, userID string) *route.Decision {
	prefs, err := e.preferences.LoadPreferences(ctx, userID)
	if err != nil {
		log.Warn("preference load failed, skipping adjustment", "error", err)
		out := decision.Clone()
		out.AppendReasoning("preference data unavailable; skipping adjustment")
		return out
	}
	return e.adapter.Adjust(decision, prefs)
}
