// Package redis provides the Redis-backed assertion store used when the
// interaction server runs with more than one instance.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mimoto-id/mimoto/cache"
	"github.com/mimoto-id/mimoto/domain"
)

// AssertionStore implements cache.AssertionStore on top of go-redis. Expiry
// is delegated to Redis key TTLs.
type AssertionStore struct {
	client *redis.Client
	prefix string
}

// NewAssertionStore creates an AssertionStore. The prefix namespaces keys so
// the store can share a Redis database with other components.
func NewAssertionStore(client *redis.Client, prefix string) *AssertionStore {
	return &AssertionStore{client: client, prefix: prefix}
}

func (s *AssertionStore) redisKey(key string) string {
	return fmt.Sprintf("%s:assertion:%s", s.prefix, cache.HashKey(key))
}

func (s *AssertionStore) Put(ctx context.Context, key string, assertion *domain.ExternalIdentityAssertion, ttl time.Duration) error {
	payload, err := json.Marshal(assertion)
	if err != nil {
		return fmt.Errorf("failed to marshal assertion: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store assertion: %w", err)
	}
	return nil
}

func (s *AssertionStore) Get(ctx context.Context, key string) (*domain.ExternalIdentityAssertion, error) {
	payload, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrAssertionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load assertion: %w", err)
	}

	var assertion domain.ExternalIdentityAssertion
	if err := json.Unmarshal(payload, &assertion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assertion: %w", err)
	}
	return &assertion, nil
}

func (s *AssertionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete assertion: %w", err)
	}
	return nil
}

var _ cache.AssertionStore = (*AssertionStore)(nil)
