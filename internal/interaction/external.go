package interaction

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/domain"
	flowerr "github.com/mimoto-id/mimoto/errors"
)

// ExternalCallbackHandler maps external identity assertions onto local
// accounts, provisioning them just-in-time on first login.
type ExternalCallbackHandler struct {
	sessions   AuthorizationSessionProvider
	clients    ClientRegistry
	identities IdentityStore
	broker     ExternalIdentityBroker
	manager    SessionManager
	events     EventSink
	policy     *RedirectPolicy
	logger     zerolog.Logger
}

func NewExternalCallbackHandler(
	sessions AuthorizationSessionProvider,
	clients ClientRegistry,
	identities IdentityStore,
	broker ExternalIdentityBroker,
	manager SessionManager,
	events EventSink,
	policy *RedirectPolicy,
	logger zerolog.Logger,
) *ExternalCallbackHandler {
	return &ExternalCallbackHandler{
		sessions:   sessions,
		clients:    clients,
		identities: identities,
		broker:     broker,
		manager:    manager,
		events:     events,
		policy:     policy,
		logger:     logger.With().Str("flow", "external").Logger(),
	}
}

// Challenge validates the return URL and hands the browser to the external
// scheme. An unsafe non-empty return URL is fatal.
func (h *ExternalCallbackHandler) Challenge(ctx context.Context, scheme, returnURL string) (*Outcome, error) {
	returnURL = h.policy.Normalize(returnURL)
	if !h.policy.Validate(returnURL) {
		return nil, flowerr.NewInvalidReturnURL(returnURL)
	}
	return ExternalChallenge(scheme, returnURL), nil
}

// Callback consumes the assertion the broker staged for key, signs the mapped
// local user in, and resolves the post-login redirect.
func (h *ExternalCallbackHandler) Callback(ctx context.Context, key string) (*Outcome, error) {
	assertion, err := h.broker.Assertion(ctx, key)
	if err != nil {
		return nil, flowerr.NewExternalAuthError(err.Error())
	}
	if assertion == nil {
		return nil, flowerr.NewExternalAuthError("no external assertion present for this request")
	}

	subject, ok := assertion.Subject()
	if !ok {
		return nil, flowerr.NewUnknownExternalUser()
	}
	scheme := assertion.Scheme()

	user, err := h.identities.FindByExternalLogin(ctx, scheme, subject)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = h.provision(ctx, scheme, subject, assertion.Claims)
		if err != nil {
			return nil, flowerr.NewPersistenceFailure(err)
		}
	default:
		return nil, flowerr.NewPersistenceFailure(err)
	}

	principal := &domain.Principal{
		SubjectID: user.ID,
		Username:  user.Username,
		Claims:    []domain.Claim{{Type: domain.ClaimIdentityProvider, Value: scheme}},
	}
	if err := h.manager.SignIn(ctx, principal); err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}
	if err := h.broker.ClearAssertion(ctx, key); err != nil {
		// The assertion is one-shot; a failed cleanup must not fail the
		// login, but it is worth noticing.
		h.logger.Warn().Err(err).Str("scheme", scheme).Msg("failed to clear consumed assertion")
	}

	returnURL := h.policy.Normalize(assertion.ReturnURL())
	if !h.policy.Validate(returnURL) {
		return nil, flowerr.NewInvalidReturnURL(returnURL)
	}

	session, err := h.sessions.GetSession(ctx, returnURL)
	if err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}
	clientID := ""
	var client *domain.Client
	if session != nil && session.ClientID != "" {
		clientID = session.ClientID
		if client, err = h.clients.FindByID(ctx, session.ClientID); err != nil {
			return nil, flowerr.NewPersistenceFailure(err)
		}
	}

	h.events.Emit(ctx, domain.UserLoginSuccess{
		SubjectID: user.ID,
		Username:  user.Username,
		ClientID:  clientID,
		Provider:  scheme,
	})

	return redirectOutcome(h.policy, client, returnURL), nil
}

// provision creates a local account for a first-time external login. The
// steps are individually idempotent by external-subject lookup, so a retry
// after a partial failure converges on a usable account.
func (h *ExternalCallbackHandler) provision(ctx context.Context, scheme, subject string, claims []domain.Claim) (*domain.LocalUser, error) {
	user := &domain.LocalUser{
		ID:       uuid.NewString(),
		Username: uuid.NewString(),
	}
	if err := h.identities.Create(ctx, user); err != nil {
		return nil, err
	}
	if derived := domain.DeriveNameAndEmailClaims(claims); len(derived) > 0 {
		if err := h.identities.AddClaims(ctx, user.ID, derived); err != nil {
			return nil, err
		}
	}
	if err := h.identities.AddExternalLogin(ctx, user.ID, scheme, subject); err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("scheme", scheme).
		Str("user_id", user.ID).
		Msg("provisioned local account for external login")
	return user, nil
}
