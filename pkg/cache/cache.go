// Package cache memoizes dispatch outcomes keyed by a normalized request
// signature. Caching is best-effort: a cache failure degrades to a miss and
// must never fail the request it was meant to speed up.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/zen-systems/promptroute/pkg/route"
)

// Entry is a memoized outcome for one signature. Entries are read-only after
// creation; expiry is lazy, so an expired entry is treated as absent rather
// than actively evicted.
type Entry struct {
	Signature string        `json:"signature"`
	Route     route.Route   `json:"route"`
	Result    string        `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the entry is past its TTL at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.TTL))
}

// Store is the persistence contract for cache entries. Get returns
// (nil, nil) on a miss. Get and Set must be atomic per key; racing Sets for
// the same signature may let either write win, cached results are
// recomputable.
type Store interface {
	Get(ctx context.Context, signature string) (*Entry, error)
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, signature string) error
}

// TTLPolicy assigns time-to-live per route class. MetaChat is deliberately
// absent: conversational answers are context-sensitive and a stale answer is
// worse than recomputation, so they are never cached.
type TTLPolicy struct {
	DirectEdit   time.Duration `yaml:"direct_edit"`
	FeatureBuild time.Duration `yaml:"feature_build"`
	Refactor     time.Duration `yaml:"refactor"`
}

// DefaultTTLPolicy returns the standard per-route lifetimes. Edits go stale
// quickly as the project changes underneath them; full builds and refactors
// are expensive enough to keep longer.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		DirectEdit:   10 * time.Minute,
		FeatureBuild: 6 * time.Hour,
		Refactor:     6 * time.Hour,
	}
}

// Normalized returns the policy with zero fields replaced by the defaults,
// so partial configuration overrides only what it names.
func (p TTLPolicy) Normalized() TTLPolicy {
	def := DefaultTTLPolicy()
	if p.DirectEdit <= 0 {
		p.DirectEdit = def.DirectEdit
	}
	if p.FeatureBuild <= 0 {
		p.FeatureBuild = def.FeatureBuild
	}
	if p.Refactor <= 0 {
		p.Refactor = def.Refactor
	}
	return p
}

// TTLFor returns the lifetime for a route, or false when the route's results
// must not be cached.
func (p TTLPolicy) TTLFor(r route.Route) (time.Duration, bool) {
	switch r {
	case route.DirectEdit:
		return p.DirectEdit, true
	case route.FeatureBuild:
		return p.FeatureBuild, true
	case route.Refactor:
		return p.Refactor, true
	default:
		return 0, false
	}
}

// Cache applies the TTL policy and the no-cache rule on top of a Store.
type Cache struct {
	store   Store
	policy  TTLPolicy
	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics attaches prometheus counters to the cache.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the cache's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// New creates a cache over the given store. Zero policy fields fall back to
// the defaults.
func New(store Store, policy TTLPolicy, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		policy: policy.Normalized(),
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup consults the cache for a signature routed to r. MetaChat lookups
// always miss, store errors degrade to a miss, and an expired entry is a
// miss that opportunistically deletes the stale record.
func (c *Cache) Lookup(ctx context.Context, signature string, r route.Route) (*Entry, bool) {
	if _, cacheable := c.policy.TTLFor(r); !cacheable {
		return nil, false
	}

	entry, err := c.store.Get(ctx, signature)
	if err != nil {
		c.log.Warn("cache lookup failed, treating as miss", "error", err)
		c.metrics.observe(r, "miss")
		return nil, false
	}
	if entry == nil {
		c.metrics.observe(r, "miss")
		return nil, false
	}
	if entry.Expired(c.now()) {
		// Space reclamation only; correctness never depends on it.
		if err := c.store.Delete(ctx, signature); err != nil {
			c.log.Debug("stale cache entry delete failed", "error", err)
		}
		c.metrics.observe(r, "expired")
		return nil, false
	}
	c.metrics.observe(r, "hit")
	return entry, true
}

// StoreResult memoizes a successful dispatch outcome. It is a no-op for
// MetaChat, and a store failure is logged rather than surfaced: the caller
// already has the result.
func (c *Cache) StoreResult(ctx context.Context, signature string, r route.Route, result string) {
	ttl, cacheable := c.policy.TTLFor(r)
	if !cacheable {
		return
	}

	entry := &Entry{
		Signature: signature,
		Route:     r,
		Result:    result,
		CreatedAt: c.now().UTC(),
		TTL:       ttl,
	}
	if err := c.store.Set(ctx, entry); err != nil {
		c.log.Warn("cache populate failed", "error", err)
	}
}
