// Package feedback persists routing outcomes and folds them into the
// per-user aggregates consumed by the preference adapter.
package feedback

import (
	"context"
	"log/slog"
	"time"

	"github.com/zen-systems/promptroute/pkg/preference"
	"github.com/zen-systems/promptroute/pkg/route"
)

// Sample is one observed routing outcome. Samples are write-once and
// append-only; nothing in this core updates or deletes them.
type Sample struct {
	Route            route.Route `json:"route"`
	UserID           string      `json:"user_id"`
	ActualDurationMs int64       `json:"actual_duration_ms"`
	Success          bool        `json:"success"`
	Timestamp        time.Time   `json:"timestamp"`
}

// SampleStore appends metric samples for auditing.
type SampleStore interface {
	Append(ctx context.Context, s Sample) error
}

// Recorder persists one sample per dispatched request and applies the
// matching delta to the (user, route) aggregate.
type Recorder struct {
	preferences preference.Store
	samples     SampleStore
	metrics     *Metrics
	log         *slog.Logger
	now         func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMetrics attaches prometheus counters to the recorder.
func WithMetrics(m *Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithLogger sets the recorder's logger.
func WithLogger(log *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.log = log }
}

// NewRecorder creates a recorder over the given stores.
func NewRecorder(prefs preference.Store, samples SampleStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		preferences: prefs,
		samples:     samples,
		log:         slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends a sample and updates the aggregate. Persistence failures
// are logged, not returned as fatal: the caller already has their result and
// bookkeeping must not retract it. The error is still reported so callers
// that care (tests, the engine's log line) can see it.
func (r *Recorder) Record(ctx context.Context, userID string, rt route.Route, success bool, durationMs int64) error {
	now := r.now().UTC()

	if r.metrics != nil {
		r.metrics.Observe(rt, success, durationMs)
	}

	var firstErr error
	if err := r.samples.Append(ctx, Sample{
		Route:            rt,
		UserID:           userID,
		ActualDurationMs: durationMs,
		Success:          success,
		Timestamp:        now,
	}); err != nil {
		r.log.Error("metric sample append failed", "user_id", userID, "route", rt, "error", err)
		firstErr = err
	}

	if err := r.preferences.Apply(ctx, userID, rt, preference.Delta{
		Success:    success,
		DurationMs: durationMs,
		ObservedAt: now,
	}); err != nil {
		r.log.Error("preference update failed", "user_id", userID, "route", rt, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
