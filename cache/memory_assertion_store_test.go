package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimoto-id/mimoto/domain"
)

func TestMemoryAssertionStoreRoundTrip(t *testing.T) {
	store := NewMemoryAssertionStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	assertion := &domain.ExternalIdentityAssertion{
		SchemeName: "oidc",
		Claims:     []domain.Claim{{Type: domain.ClaimSubject, Value: "ext-123"}},
	}
	require.NoError(t, store.Put(ctx, "state-key", assertion, time.Minute))

	got, err := store.Get(ctx, "state-key")
	require.NoError(t, err)
	assert.Equal(t, "oidc", got.SchemeName)

	require.NoError(t, store.Delete(ctx, "state-key"))
	_, err = store.Get(ctx, "state-key")
	assert.ErrorIs(t, err, ErrAssertionNotFound)
}

func TestMemoryAssertionStoreMissingKey(t *testing.T) {
	store := NewMemoryAssertionStore(time.Minute)
	defer store.Close()

	_, err := store.Get(context.Background(), "never-staged")
	assert.ErrorIs(t, err, ErrAssertionNotFound)
}

func TestMemoryAssertionStoreExpiry(t *testing.T) {
	store := NewMemoryAssertionStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "short", &domain.ExternalIdentityAssertion{SchemeName: "github"}, 10*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	_, err := store.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrAssertionNotFound)
}
