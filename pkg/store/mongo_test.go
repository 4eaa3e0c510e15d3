package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/zen-systems/promptroute/pkg/preference"
	"github.com/zen-systems/promptroute/pkg/route"
)

// newTestMongo connects to the instance named by MONGODB_TEST_URI and skips
// the test when none is configured.
func newTestMongo(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	s, err := NewMongoStore(context.Background(), uri, "promptroute_test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		_ = s.db.Collection(collectionPreferences).Drop(ctx)
		_ = s.db.Collection(collectionSamples).Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestMongoApplyAndLoad(t *testing.T) {
	s := newTestMongo(t)
	ctx := context.Background()

	deltas := []preference.Delta{
		{Success: true, DurationMs: 100},
		{Success: false, DurationMs: 300},
	}
	for _, d := range deltas {
		if err := s.Apply(ctx, "u", route.Refactor, d); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	prefs, err := s.LoadPreferences(ctx, "u")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(prefs) != 1 {
		t.Fatalf("expected one aggregate, got %d", len(prefs))
	}
	p := prefs[0]
	if p.TotalCount != 2 || p.SuccessCount != 1 {
		t.Fatalf("counters: %d/%d", p.SuccessCount, p.TotalCount)
	}
	if p.AvgDurationMs < 199 || p.AvgDurationMs > 201 {
		t.Fatalf("incremental mean: got %.3f want 200", p.AvgDurationMs)
	}
}

// An upsert is race-safe only when a unique index backs the query fields.
// Concurrent first samples for one (user, route) key must resolve to a single
// aggregate document with exact counts.
func TestMongoConcurrentFirstSamples(t *testing.T) {
	s := newTestMongo(t)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := preference.Delta{Success: true, DurationMs: 100, ObservedAt: time.Now().UTC()}
			if err := s.Apply(ctx, "u", route.DirectEdit, d); err != nil {
				t.Errorf("apply: %v", err)
			}
		}()
	}
	wg.Wait()

	prefs, err := s.LoadPreferences(ctx, "u")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(prefs) != 1 {
		t.Fatalf("expected one aggregate document, got %d: %+v", len(prefs), prefs)
	}
	if prefs[0].TotalCount != writers || prefs[0].SuccessCount != writers {
		t.Fatalf("lost updates: %+v", prefs[0])
	}
}
