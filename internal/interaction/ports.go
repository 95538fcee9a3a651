package interaction

import (
	"context"

	"github.com/mimoto-id/mimoto/domain"
)

// AuthorizationSessionProvider is the authorization-session backend. The
// production implementation lives in the OIDC protocol engine; sessions are
// correlated by the return URL the authorize endpoint issued.
type AuthorizationSessionProvider interface {
	// GetSession resolves the pending authorization session a return URL
	// belongs to. (nil, nil) means no session: anonymous/idle interaction.
	GetSession(ctx context.Context, returnURL string) (*domain.AuthorizationSession, error)
	// GrantConsent persists a consent decision against the session. Returns
	// domain.ErrSessionFinalized when the session was already concluded.
	GrantConsent(ctx context.Context, session *domain.AuthorizationSession, decision *domain.ConsentDecision) error
	// DenyConsent concludes the session with a denial.
	DenyConsent(ctx context.Context, session *domain.AuthorizationSession) error
	// ListConsents enumerates the subject's persisted grants.
	ListConsents(ctx context.Context, subjectID string) ([]domain.Grant, error)
	// RevokeConsent removes the subject's grant for one client.
	RevokeConsent(ctx context.Context, subjectID, clientID string) error
	// CreateLogoutContext captures the current session state for a logout
	// round-trip and returns its id.
	CreateLogoutContext(ctx context.Context) (string, error)
	// GetLogoutContext resolves a logout context. (nil, nil) when unknown.
	GetLogoutContext(ctx context.Context, logoutID string) (*domain.LogoutContext, error)
}

// DeviceSessionProvider resolves and concludes pending device grants.
type DeviceSessionProvider interface {
	// FindByUserCode resolves a pending device authorization. (nil, nil)
	// when the code matches nothing.
	FindByUserCode(ctx context.Context, userCode string) (*domain.DeviceAuthorization, error)
	// CompleteAuthorization applies the subject's decision. A decision with
	// no granted scopes denies the request.
	CompleteAuthorization(ctx context.Context, userCode, subjectID string, decision *domain.ConsentDecision) error
}

// ClientRegistry resolves registered relying parties.
type ClientRegistry interface {
	// FindByID returns (nil, nil) for unknown clients.
	FindByID(ctx context.Context, clientID string) (*domain.Client, error)
}

// ResourceRegistry resolves requested scope names to displayable resources.
type ResourceRegistry interface {
	FindByScopes(ctx context.Context, scopes []string) (*domain.ResourceSet, error)
}

// IdentityStore is the local account backend.
type IdentityStore interface {
	// VerifyPassword checks local credentials. Failures surface as
	// domain.ErrInvalidCredentials regardless of cause.
	VerifyPassword(ctx context.Context, username, password string) (*domain.LocalUser, error)
	// FindByExternalLogin resolves the account bound to an external
	// identity, or domain.ErrUserNotFound.
	FindByExternalLogin(ctx context.Context, provider, providerKey string) (*domain.LocalUser, error)
	Create(ctx context.Context, user *domain.LocalUser) error
	AddExternalLogin(ctx context.Context, userID, provider, providerKey string) error
	AddClaims(ctx context.Context, userID string, claims []domain.Claim) error
}

// AuthScheme describes one external authentication scheme the broker offers.
type AuthScheme struct {
	Name        string
	DisplayName string
}

// ExternalIdentityBroker fronts the external federation transport. The
// orchestrators never see OAuth codes or tokens, only the staged assertion
// the broker produced for the current callback.
type ExternalIdentityBroker interface {
	// Schemes lists the enabled external schemes.
	Schemes(ctx context.Context) ([]AuthScheme, error)
	// Assertion reads the staged assertion for a callback correlation key.
	// (nil, nil) when the broker holds none.
	Assertion(ctx context.Context, key string) (*domain.ExternalIdentityAssertion, error)
	// ClearAssertion discards a consumed assertion.
	ClearAssertion(ctx context.Context, key string) error
	// SupportsSignOut reports whether the scheme can take part in federated
	// sign-out.
	SupportsSignOut(scheme string) bool
}

// SessionManager owns the local browser session (the authentication cookie).
type SessionManager interface {
	SignIn(ctx context.Context, principal *domain.Principal) error
	SignOut(ctx context.Context) error
}

// EventSink receives domain events. Emission is fire-and-forget: sinks must
// swallow and log their own failures.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}
