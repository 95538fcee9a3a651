package federation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/cache"
	"github.com/mimoto-id/mimoto/config"
	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

// Broker runs the upstream half of external login: it sends the browser to
// the provider, handles the provider callback, and stages the resulting
// assertion for the interaction flow keyed by the handshake state.
type Broker struct {
	providers map[string]Provider
	order     []string
	store     cache.AssertionStore
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewBroker creates a Broker staging assertions in store for at most ttl.
func NewBroker(store cache.AssertionStore, ttl time.Duration, logger zerolog.Logger) *Broker {
	return &Broker{
		providers: make(map[string]Provider),
		store:     store,
		ttl:       ttl,
		logger:    logger.With().Str("component", "federation").Logger(),
	}
}

// NewBrokerFromConfig builds a Broker with one provider per configuration
// entry. Unknown provider types fail loudly rather than silently dropping a
// configured scheme.
func NewBrokerFromConfig(configs []config.ProviderConfig, store cache.AssertionStore, ttl time.Duration, logger zerolog.Logger) (*Broker, error) {
	b := NewBroker(store, ttl, logger)
	for _, pc := range configs {
		var (
			p   Provider
			err error
		)
		switch pc.Type {
		case "oidc":
			p, err = NewOIDCProvider(pc)
		case "github":
			p, err = NewGitHubProvider(pc)
		default:
			return nil, fmt.Errorf("provider %q: unsupported type %q", pc.Name, pc.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		b.Register(p)
	}
	return b, nil
}

// Register adds a provider under its scheme name. Registration order is the
// order schemes are listed on the login screen.
func (b *Broker) Register(p Provider) {
	if _, exists := b.providers[p.Name()]; !exists {
		b.order = append(b.order, p.Name())
	}
	b.providers[p.Name()] = p
}

// Challenge starts the handshake for the named scheme and returns the
// provider authorization URL to redirect the browser to. The return URL is
// staged with the pending assertion so the callback can resume the original
// flow.
func (b *Broker) Challenge(ctx context.Context, scheme, returnURL string) (string, error) {
	provider, ok := b.providers[scheme]
	if !ok {
		return "", ErrProviderNotFound
	}

	state, err := generateState()
	if err != nil {
		return "", err
	}

	pending := &domain.ExternalIdentityAssertion{
		SchemeName: scheme,
		Properties: map[string]string{
			domain.AssertionPropertyScheme:    scheme,
			domain.AssertionPropertyReturnURL: returnURL,
		},
	}
	if err := b.store.Put(ctx, state, pending, b.ttl); err != nil {
		return "", err
	}

	b.logger.Debug().Str("scheme", scheme).Msg("external challenge issued")
	return provider.AuthCodeURL(state), nil
}

// HandleCallback completes the handshake: it validates the state against the
// staged entry, exchanges the code, fetches the profile, and replaces the
// pending entry with the completed assertion. The returned key is what the
// interaction flow consumes the assertion under.
func (b *Broker) HandleCallback(ctx context.Context, state, code string) (string, error) {
	pending, err := b.store.Get(ctx, state)
	if errors.Is(err, cache.ErrAssertionNotFound) {
		return "", ErrInvalidAuthState
	}
	if err != nil {
		return "", err
	}
	if len(pending.Claims) > 0 {
		// Completed assertions must not be replayed through the callback.
		return "", ErrInvalidAuthState
	}

	provider, ok := b.providers[pending.SchemeName]
	if !ok {
		return "", ErrProviderNotFound
	}

	token, err := provider.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	info, err := provider.FetchUserInfo(ctx, token)
	if err != nil {
		return "", err
	}

	completed := &domain.ExternalIdentityAssertion{
		SchemeName: pending.SchemeName,
		Claims:     info.Claims(),
		Properties: pending.Properties,
	}
	if err := b.store.Put(ctx, state, completed, b.ttl); err != nil {
		return "", err
	}

	b.logger.Info().Str("scheme", pending.SchemeName).Msg("external authentication completed")
	return state, nil
}

// Schemes lists the registered providers for the login screen.
func (b *Broker) Schemes(_ context.Context) ([]interaction.AuthScheme, error) {
	schemes := make([]interaction.AuthScheme, 0, len(b.order))
	for _, name := range b.order {
		schemes = append(schemes, interaction.AuthScheme{
			Name:        name,
			DisplayName: b.providers[name].DisplayName(),
		})
	}
	return schemes, nil
}

// Assertion returns the staged assertion for key, or nil when none exists.
func (b *Broker) Assertion(ctx context.Context, key string) (*domain.ExternalIdentityAssertion, error) {
	assertion, err := b.store.Get(ctx, key)
	if errors.Is(err, cache.ErrAssertionNotFound) {
		return nil, nil
	}
	return assertion, err
}

// ClearAssertion drops the staged assertion after it has been consumed.
func (b *Broker) ClearAssertion(ctx context.Context, key string) error {
	return b.store.Delete(ctx, key)
}

// SupportsSignOut reports whether the scheme has a federated sign-out
// endpoint.
func (b *Broker) SupportsSignOut(scheme string) bool {
	provider, ok := b.providers[scheme]
	return ok && provider.EndSessionURL() != ""
}

// SignOutURL returns the provider's end-session endpoint, or "" when the
// scheme is unknown or has none.
func (b *Broker) SignOutURL(scheme string) string {
	provider, ok := b.providers[scheme]
	if !ok {
		return ""
	}
	return provider.EndSessionURL()
}

func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

var _ interaction.ExternalIdentityBroker = (*Broker)(nil)
