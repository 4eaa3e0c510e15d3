// Package preference holds per-user, per-route historical performance
// aggregates and the adapter that adjusts routing decisions with them.
package preference

import (
	"context"
	"time"

	"github.com/zen-systems/promptroute/pkg/route"
)

// RoutePreference aggregates one user's historical outcomes for one route.
//
// Counters are monotonically non-decreasing and SuccessCount never exceeds
// TotalCount. Aggregates are created lazily on the first feedback sample and
// are never deleted by this core.
type RoutePreference struct {
	UserID        string      `json:"user_id"`
	Route         route.Route `json:"route"`
	SuccessCount  int64       `json:"success_count"`
	TotalCount    int64       `json:"total_count"`
	AvgDurationMs float64     `json:"avg_duration_ms"`
	LastUsedAt    time.Time   `json:"last_used_at"`
}

// SuccessRate derives the rate from the counters. It is recomputed on read
// rather than stored, so it can never diverge from its source of truth.
func (p *RoutePreference) SuccessRate() float64 {
	if p.TotalCount == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(p.TotalCount)
}

// Delta is one observed outcome applied to an aggregate.
type Delta struct {
	Success    bool
	DurationMs int64
	ObservedAt time.Time
}

// Store is the persistence contract for preference aggregates.
//
// Apply must be atomic per (userID, route) key: concurrent requests from the
// same user on the same route are expected, and a lost update would corrupt
// the evidence floor the adapter relies on.
type Store interface {
	LoadPreferences(ctx context.Context, userID string) ([]RoutePreference, error)
	Apply(ctx context.Context, userID string, r route.Route, d Delta) error
}

// ApplyDelta folds one observation into the aggregate in place. Store
// implementations that read-modify-write under their own isolation share
// this arithmetic so every backend agrees on the incremental mean.
func ApplyDelta(p *RoutePreference, d Delta) {
	p.TotalCount++
	if d.Success {
		p.SuccessCount++
	}
	p.AvgDurationMs += (float64(d.DurationMs) - p.AvgDurationMs) / float64(p.TotalCount)
	at := d.ObservedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	p.LastUsedAt = at
}
