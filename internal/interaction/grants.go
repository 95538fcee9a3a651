package interaction

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/domain"
	flowerr "github.com/mimoto-id/mimoto/errors"
)

// GrantsPath is where the grants page lives; Revoke redirects back to it.
const GrantsPath = "/grants"

// GrantsOrchestrator lets a subject review and revoke the consents persisted
// on their behalf.
type GrantsOrchestrator struct {
	sessions  AuthorizationSessionProvider
	clients   ClientRegistry
	resources ResourceRegistry
	events    EventSink
	logger    zerolog.Logger
}

func NewGrantsOrchestrator(
	sessions AuthorizationSessionProvider,
	clients ClientRegistry,
	resources ResourceRegistry,
	events EventSink,
	logger zerolog.Logger,
) *GrantsOrchestrator {
	return &GrantsOrchestrator{
		sessions:  sessions,
		clients:   clients,
		resources: resources,
		events:    events,
		logger:    logger.With().Str("flow", "grants").Logger(),
	}
}

// ListGrants enumerates the subject's persisted consents joined with client
// and resource metadata. Grants whose client has since been unregistered are
// skipped rather than shown half-populated.
func (o *GrantsOrchestrator) ListGrants(ctx context.Context, principal *domain.Principal) (*Outcome, error) {
	grants, err := o.sessions.ListConsents(ctx, principal.SubjectID)
	if err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}

	views := make([]GrantView, 0, len(grants))
	for _, g := range grants {
		client, err := o.clients.FindByID(ctx, g.ClientID)
		if err != nil {
			return nil, flowerr.NewPersistenceFailure(err)
		}
		if client == nil {
			o.logger.Warn().Str("client_id", g.ClientID).Msg("grant references unregistered client")
			continue
		}

		resources, err := o.resources.FindByScopes(ctx, g.Scopes)
		if err != nil {
			return nil, flowerr.NewPersistenceFailure(err)
		}

		view := GrantView{
			ClientID:      client.ClientID,
			ClientName:    client.DisplayName(),
			ClientURL:     client.ClientURI,
			ClientLogoURL: client.LogoURI,
			CreatedAt:     g.CreatedAt,
			ExpiresAt:     g.ExpiresAt,
		}
		for _, r := range resources.Identity {
			view.IdentityScopes = append(view.IdentityScopes, displayNameOrName(r))
		}
		for _, r := range resources.API {
			view.APIScopes = append(view.APIScopes, displayNameOrName(r))
		}
		views = append(views, view)
	}

	return FormView(&GrantsViewModel{Grants: views}), nil
}

// Revoke removes the subject's consent for one client and returns to the
// grants page.
func (o *GrantsOrchestrator) Revoke(ctx context.Context, principal *domain.Principal, clientID string) (*Outcome, error) {
	if err := o.sessions.RevokeConsent(ctx, principal.SubjectID, clientID); err != nil {
		return nil, flowerr.NewPersistenceFailure(err)
	}
	o.events.Emit(ctx, domain.GrantsRevoked{SubjectID: principal.SubjectID, ClientID: clientID})
	return DirectRedirect(GrantsPath), nil
}

func displayNameOrName(r domain.Resource) string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Name
}
