package interaction

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/domain"
	flowerr "github.com/mimoto-id/mimoto/errors"
)

// Login form buttons.
const (
	buttonLogin = "login"
	buttonYes   = "yes"
	buttonNo    = "no"
)

// LoginOrchestrator drives the login screen: external challenge shortcut,
// credential submission, and cancellation of the pending authorize request.
type LoginOrchestrator struct {
	sessions   AuthorizationSessionProvider
	clients    ClientRegistry
	identities IdentityStore
	broker     ExternalIdentityBroker
	manager    SessionManager
	events     EventSink
	policy     *RedirectPolicy
	opts       AccountOptions
	logger     zerolog.Logger
}

func NewLoginOrchestrator(
	sessions AuthorizationSessionProvider,
	clients ClientRegistry,
	identities IdentityStore,
	broker ExternalIdentityBroker,
	manager SessionManager,
	events EventSink,
	policy *RedirectPolicy,
	opts AccountOptions,
	logger zerolog.Logger,
) *LoginOrchestrator {
	return &LoginOrchestrator{
		sessions:   sessions,
		clients:    clients,
		identities: identities,
		broker:     broker,
		manager:    manager,
		events:     events,
		policy:     policy,
		opts:       opts,
		logger:     logger.With().Str("flow", "login").Logger(),
	}
}

// BeginLogin decides what the login request renders: an immediate external
// challenge when the session forces a single identity provider, otherwise the
// login form. A missing session is fine; that is a bare local login.
func (o *LoginOrchestrator) BeginLogin(ctx context.Context, returnURL string) (*Outcome, error) {
	session, err := o.sessions.GetSession(ctx, returnURL)
	if err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}

	if session != nil && session.IdentityProviderHint != "" {
		// The client or the authorize request picked exactly one scheme;
		// skip the picker entirely.
		return ExternalChallenge(session.IdentityProviderHint, returnURL), nil
	}

	model, err := o.buildLoginView(ctx, returnURL, session)
	if err != nil {
		return nil, err
	}
	return FormView(model), nil
}

// SubmitCredentials handles the login form post. Cancel concludes the pending
// session with a denial; login verifies credentials against the identity
// store. Unsafe return URLs are fatal on the login path, never downgraded.
func (o *LoginOrchestrator) SubmitCredentials(ctx context.Context, in LoginInput) (*Outcome, error) {
	session, err := o.sessions.GetSession(ctx, in.ReturnURL)
	if err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}

	if in.Button != buttonLogin {
		return o.cancel(ctx, session, in.ReturnURL)
	}

	returnURL := o.policy.Normalize(in.ReturnURL)
	if !o.policy.Validate(returnURL) {
		return nil, flowerr.NewInvalidReturnURL(returnURL)
	}

	clientID := ""
	if session != nil {
		clientID = session.ClientID
	}

	user, err := o.identities.VerifyPassword(ctx, in.Username, in.Password)
	if err != nil {
		o.logger.Info().Str("username", in.Username).Msg("credential check failed")
		o.events.Emit(ctx, domain.UserLoginFailure{Username: in.Username, ClientID: clientID, Reason: "invalid credentials"})

		model, buildErr := o.buildLoginView(ctx, in.ReturnURL, session)
		if buildErr != nil {
			return nil, buildErr
		}
		model.Username = in.Username
		model.RememberLogin = in.RememberLogin
		model.Error = o.opts.InvalidCredentialsMessage
		return FormView(model), nil
	}

	principal := &domain.Principal{
		SubjectID: user.ID,
		Username:  user.Username,
		Claims:    []domain.Claim{{Type: domain.ClaimIdentityProvider, Value: domain.IdentityProviderLocal}},
	}
	if err := o.manager.SignIn(ctx, principal); err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}
	o.events.Emit(ctx, domain.UserLoginSuccess{
		SubjectID: user.ID,
		Username:  user.Username,
		ClientID:  clientID,
		Provider:  domain.IdentityProviderLocal,
	})

	client, err := o.sessionClient(ctx, session)
	if err != nil {
		return nil, err
	}
	return redirectOutcome(o.policy, client, returnURL), nil
}

// cancel denies the pending session, if any, and sends the browser back.
func (o *LoginOrchestrator) cancel(ctx context.Context, session *domain.AuthorizationSession, returnURL string) (*Outcome, error) {
	if session == nil {
		// Nothing pending; the safest place to land is the site root.
		return DirectRedirect("/"), nil
	}

	if err := o.sessions.DenyConsent(ctx, session); err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}

	returnURL = o.policy.Normalize(returnURL)
	if !o.policy.Validate(returnURL) {
		return nil, flowerr.NewInvalidReturnURL(returnURL)
	}
	client, err := o.sessionClient(ctx, session)
	if err != nil {
		return nil, err
	}
	return redirectOutcome(o.policy, client, returnURL), nil
}

func (o *LoginOrchestrator) sessionClient(ctx context.Context, session *domain.AuthorizationSession) (*domain.Client, error) {
	if session == nil || session.ClientID == "" {
		return nil, nil
	}
	client, err := o.clients.FindByID(ctx, session.ClientID)
	if err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}
	return client, nil
}

// buildLoginView computes the provider picker, filtered by the client's
// identity provider restrictions when a session is attached.
func (o *LoginOrchestrator) buildLoginView(ctx context.Context, returnURL string, session *domain.AuthorizationSession) (*LoginViewModel, error) {
	schemes, err := o.broker.Schemes(ctx)
	if err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}

	client, err := o.sessionClient(ctx, session)
	if err != nil {
		return nil, err
	}

	providers := make([]ExternalProviderView, 0, len(schemes))
	for _, s := range schemes {
		if client != nil && !client.AllowsIdentityProvider(s.Name) {
			continue
		}
		providers = append(providers, ExternalProviderView{DisplayName: s.DisplayName, Scheme: s.Name})
	}

	return &LoginViewModel{
		ReturnURL:         returnURL,
		AllowLocalLogin:   o.opts.AllowLocalLogin,
		AllowRememberMe:   o.opts.AllowRememberLogin,
		ExternalProviders: providers,
	}, nil
}
