package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zen-systems/promptroute/pkg/route"
)

func newTestCache(t *testing.T) (*Cache, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	return New(store, TTLPolicy{}), store
}

func TestSignatureEquivalence(t *testing.T) {
	a := Signature("Change the Button color", "proj-1", "user-1")
	b := Signature("  change   the button color  ", "proj-1", "user-1")
	if a != b {
		t.Fatalf("case/whitespace variants must share a signature: %s vs %s", a, b)
	}
}

func TestSignatureTenantScoping(t *testing.T) {
	base := Signature("change the button color", "proj-1", "user-1")
	if Signature("change the button color", "proj-2", "user-1") == base {
		t.Fatalf("signature must differ across projects")
	}
	if Signature("change the button color", "proj-1", "user-2") == base {
		t.Fatalf("signature must differ across users")
	}
}

func TestSignatureSeparatorInjection(t *testing.T) {
	// Field boundaries must not be forgeable by shifting text between the
	// hashed components.
	if Signature("abc", "d", "u") == Signature("ab", "cd", "u") {
		t.Fatalf("component boundaries leaked into the hash")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	sig := Signature("change the button color", "p", "u")

	if _, hit := c.Lookup(ctx, sig, route.DirectEdit); hit {
		t.Fatalf("unexpected hit on empty cache")
	}

	c.StoreResult(ctx, sig, route.DirectEdit, "done")
	entry, hit := c.Lookup(ctx, sig, route.DirectEdit)
	if !hit {
		t.Fatalf("expected hit after populate")
	}
	if entry.Result != "done" || entry.Route != route.DirectEdit {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestMetaChatNeverCached(t *testing.T) {
	c, store := newTestCache(t)
	ctx := context.Background()
	sig := Signature("what does this app do", "p", "u")

	c.StoreResult(ctx, sig, route.MetaChat, "it builds sites")
	if entry, err := store.Get(ctx, sig); err != nil || entry != nil {
		t.Fatalf("meta_chat result written to store: %+v err=%v", entry, err)
	}

	// Even a manually planted entry must never be served for MetaChat.
	_ = store.Set(ctx, &Entry{Signature: sig, Route: route.MetaChat, Result: "stale", CreatedAt: time.Now(), TTL: time.Hour})
	if _, hit := c.Lookup(ctx, sig, route.MetaChat); hit {
		t.Fatalf("meta_chat lookup must always miss")
	}
}

func TestLazyExpiry(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	c := New(store, TTLPolicy{})
	base := time.Now()
	c.now = func() time.Time { return base }

	ctx := context.Background()
	sig := Signature("refactor the checkout flow", "p", "u")
	c.StoreResult(ctx, sig, route.Refactor, "refactored")

	if _, hit := c.Lookup(ctx, sig, route.Refactor); !hit {
		t.Fatalf("expected hit before expiry")
	}

	c.now = func() time.Time { return base.Add(7 * time.Hour) }
	if _, hit := c.Lookup(ctx, sig, route.Refactor); hit {
		t.Fatalf("expired entry must read as a miss")
	}
	// The expired record was opportunistically deleted.
	if entry, _ := store.Get(ctx, sig); entry != nil {
		t.Fatalf("expected opportunistic delete of stale entry")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*Entry, error) {
	return nil, errors.New("store down")
}
func (failingStore) Set(context.Context, *Entry) error  { return errors.New("store down") }
func (failingStore) Delete(context.Context, string) error { return errors.New("store down") }

func TestStoreFailureDegradesToMiss(t *testing.T) {
	c := New(failingStore{}, TTLPolicy{})
	ctx := context.Background()

	if _, hit := c.Lookup(ctx, "sig", route.DirectEdit); hit {
		t.Fatalf("store failure must read as a miss")
	}
	// Populate failure must not panic or surface.
	c.StoreResult(ctx, "sig", route.DirectEdit, "result")
}

func TestTTLPolicyDefaults(t *testing.T) {
	p := DefaultTTLPolicy()
	direct, _ := p.TTLFor(route.DirectEdit)
	build, _ := p.TTLFor(route.FeatureBuild)
	refactor, _ := p.TTLFor(route.Refactor)
	if direct >= build || direct >= refactor {
		t.Fatalf("direct_edit TTL must be the shortest: %v %v %v", direct, build, refactor)
	}
	if _, cacheable := p.TTLFor(route.MetaChat); cacheable {
		t.Fatalf("meta_chat must not be cacheable")
	}
}
