// Package store provides persistence backends for preference aggregates and
// metric samples: an in-process store for tests and single-binary runs, a
// SQLite store for single-node deployments, and a MongoDB store for shared
// deployments.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/zen-systems/promptroute/pkg/feedback"
	"github.com/zen-systems/promptroute/pkg/preference"
	"github.com/zen-systems/promptroute/pkg/route"
)

// MemoryStore keeps aggregates and samples in process memory. All updates
// run under one mutex, so concurrent Apply calls for the same (user, route)
// key serialize and never lose increments.
type MemoryStore struct {
	mu      sync.Mutex
	prefs   map[string]map[route.Route]*preference.RoutePreference
	samples []feedback.Sample
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs: make(map[string]map[route.Route]*preference.RoutePreference),
	}
}

// LoadPreferences returns copies of the user's aggregates in route order.
func (s *MemoryStore) LoadPreferences(_ context.Context, userID string) ([]preference.RoutePreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byRoute := s.prefs[userID]
	out := make([]preference.RoutePreference, 0, len(byRoute))
	for _, p := range byRoute {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out, nil
}

// Apply folds one outcome into the (user, route) aggregate, creating it
// lazily on the first sample.
func (s *MemoryStore) Apply(_ context.Context, userID string, r route.Route, d preference.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byRoute := s.prefs[userID]
	if byRoute == nil {
		byRoute = make(map[route.Route]*preference.RoutePreference)
		s.prefs[userID] = byRoute
	}
	p := byRoute[r]
	if p == nil {
		p = &preference.RoutePreference{UserID: userID, Route: r}
		byRoute[r] = p
	}
	preference.ApplyDelta(p, d)
	return nil
}

// Append records a metric sample.
func (s *MemoryStore) Append(_ context.Context, sample feedback.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

// Samples returns a copy of all recorded samples, oldest first.
func (s *MemoryStore) Samples() []feedback.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feedback.Sample(nil), s.samples...)
}
