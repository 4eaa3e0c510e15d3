package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local cache store. The janitor sweep is space
// reclamation only; lookups still check entry expiry themselves.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an in-memory store whose janitor reclaims expired
// entries at the given interval.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = 10 * time.Minute
	}
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, sweepInterval),
	}
}

// Get returns the entry for a signature, or (nil, nil) on a miss.
func (s *MemoryStore) Get(_ context.Context, signature string) (*Entry, error) {
	v, ok := s.cache.Get(signature)
	if !ok {
		return nil, nil
	}
	entry, ok := v.(*Entry)
	if !ok {
		return nil, nil
	}
	return entry, nil
}

// Set stores an entry under its signature. Last writer wins.
func (s *MemoryStore) Set(_ context.Context, entry *Entry) error {
	s.cache.Set(entry.Signature, entry, entry.TTL)
	return nil
}

// Delete removes an entry.
func (s *MemoryStore) Delete(_ context.Context, signature string) error {
	s.cache.Delete(signature)
	return nil
}
