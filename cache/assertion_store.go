// Package cache holds the short-lived stores backing the interaction flows:
// staged external identity assertions waiting for their browser callback.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/mimoto-id/mimoto/domain"
)

// ErrAssertionNotFound is returned when no staged assertion exists for a key,
// either because it was never staged, already consumed, or expired.
var ErrAssertionNotFound = errors.New("assertion not found")

// AssertionStore stages external identity assertions between the upstream
// callback and the interaction flow that consumes them. Entries are one-shot
// and expire on their own if the browser never completes the flow.
type AssertionStore interface {
	Put(ctx context.Context, key string, assertion *domain.ExternalIdentityAssertion, ttl time.Duration) error
	Get(ctx context.Context, key string) (*domain.ExternalIdentityAssertion, error)
	Delete(ctx context.Context, key string) error
}

// HashKey shortens and de-identifies a state key before it is used as a
// storage key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
