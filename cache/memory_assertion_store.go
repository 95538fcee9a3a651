package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/mimoto-id/mimoto/domain"
)

// MemoryAssertionStore implements AssertionStore with ttlcache. Suitable for
// single-instance deployments; multi-instance setups use the redis store.
type MemoryAssertionStore struct {
	cache *ttlcache.Cache[string, *domain.ExternalIdentityAssertion]
}

// NewMemoryAssertionStore creates an in-memory assertion store with automatic
// expiry cleanup.
func NewMemoryAssertionStore(defaultTTL time.Duration) *MemoryAssertionStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *domain.ExternalIdentityAssertion](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.ExternalIdentityAssertion](),
	)
	go c.Start()
	return &MemoryAssertionStore{cache: c}
}

func (s *MemoryAssertionStore) Put(_ context.Context, key string, assertion *domain.ExternalIdentityAssertion, ttl time.Duration) error {
	s.cache.Set(HashKey(key), assertion, ttl)
	return nil
}

func (s *MemoryAssertionStore) Get(_ context.Context, key string) (*domain.ExternalIdentityAssertion, error) {
	item := s.cache.Get(HashKey(key))
	if item == nil {
		return nil, ErrAssertionNotFound
	}
	return item.Value(), nil
}

func (s *MemoryAssertionStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(HashKey(key))
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryAssertionStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ AssertionStore = (*MemoryAssertionStore)(nil)
