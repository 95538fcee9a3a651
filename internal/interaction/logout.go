package interaction

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/domain"
	flowerr "github.com/mimoto-id/mimoto/errors"
)

// LogoutOrchestrator terminates the local session and, when the signed-in
// principal arrived through an external scheme that supports it, triggers
// federated sign-out.
type LogoutOrchestrator struct {
	sessions AuthorizationSessionProvider
	broker   ExternalIdentityBroker
	manager  SessionManager
	events   EventSink
	opts     AccountOptions
	logger   zerolog.Logger
}

func NewLogoutOrchestrator(
	sessions AuthorizationSessionProvider,
	broker ExternalIdentityBroker,
	manager SessionManager,
	events EventSink,
	opts AccountOptions,
	logger zerolog.Logger,
) *LogoutOrchestrator {
	return &LogoutOrchestrator{
		sessions: sessions,
		broker:   broker,
		manager:  manager,
		events:   events,
		opts:     opts,
		logger:   logger.With().Str("flow", "logout").Logger(),
	}
}

// BeginLogout decides whether the confirmation prompt is needed. Anonymous
// principals, and logout contexts that already authenticated the request,
// fall straight through to CompleteLogout.
func (o *LogoutOrchestrator) BeginLogout(ctx context.Context, principal *domain.Principal, logoutID string) (*Outcome, error) {
	prompt := o.opts.ShowLogoutPrompt
	if !principal.Authenticated() {
		prompt = false
	} else if logoutID != "" {
		lc, err := o.sessions.GetLogoutContext(ctx, logoutID)
		if err != nil {
			return nil, flowerr.NewPersistenceFailure(err)
		}
		if lc != nil && !lc.ShowSignOutPrompt {
			// The logout request was client-initiated and authenticated;
			// prompting again would be noise.
			prompt = false
		}
	}

	if prompt {
		return FormView(&LogoutPromptViewModel{LogoutID: logoutID}), nil
	}
	return o.CompleteLogout(ctx, principal, logoutID)
}

// CompleteLogout signs the user out locally, emits the logout event, and
// builds the logged-out view, including the federated sign-out trigger and
// front-channel iframe URL when applicable.
func (o *LogoutOrchestrator) CompleteLogout(ctx context.Context, principal *domain.Principal, logoutID string) (*Outcome, error) {
	externalScheme := ""
	if principal.Authenticated() {
		if idp := principal.IdentityProvider(); idp != "" && idp != domain.IdentityProviderLocal && o.broker.SupportsSignOut(idp) {
			// The upstream provider needs a logout context to return to
			// after its own sign-out round-trip.
			if logoutID == "" {
				id, err := o.sessions.CreateLogoutContext(ctx)
				if err != nil {
					return nil, flowerr.NewPersistenceFailure(err)
				}
				logoutID = id
			}
			externalScheme = idp
		}

		if err := o.manager.SignOut(ctx); err != nil {
			return nil, flowerr.NewPersistenceFailure(err)
		}
		o.events.Emit(ctx, domain.UserLogoutSuccess{SubjectID: principal.SubjectID, Username: principal.Username})
	}

	model := &LoggedOutViewModel{
		LogoutID:              logoutID,
		AutomaticRedirect:     o.opts.AutomaticRedirectAfterLogout,
		ExternalSignOutScheme: externalScheme,
	}
	if logoutID != "" {
		lc, err := o.sessions.GetLogoutContext(ctx, logoutID)
		if err != nil {
			return nil, flowerr.NewPersistenceFailure(err)
		}
		if lc != nil {
			model.ClientName = lc.ClientName
			model.PostLogoutRedirectURI = lc.PostLogoutRedirectURI
			model.SignOutIFrameURL = lc.SignOutIFrameURL
		}
	}
	return SuccessView(model), nil
}
