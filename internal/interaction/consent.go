package interaction

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/domain"
	flowerr "github.com/mimoto-id/mimoto/errors"
)

const (
	// reasonPersistence deliberately says nothing about the underlying
	// failure; collaborator errors never reach the browser.
	reasonPersistence = "the request could not be completed"

	msgPickAtLeastOneScope = "You must pick at least one permission"
	msgInvalidSelection    = "Invalid selection"
)

// ConsentOrchestrator builds consent view state and applies the subject's
// decision to the pending authorization session.
type ConsentOrchestrator struct {
	sessions  AuthorizationSessionProvider
	clients   ClientRegistry
	resources ResourceRegistry
	events    EventSink
	policy    *RedirectPolicy
	logger    zerolog.Logger
}

func NewConsentOrchestrator(
	sessions AuthorizationSessionProvider,
	clients ClientRegistry,
	resources ResourceRegistry,
	events EventSink,
	policy *RedirectPolicy,
	logger zerolog.Logger,
) *ConsentOrchestrator {
	return &ConsentOrchestrator{
		sessions:  sessions,
		clients:   clients,
		resources: resources,
		events:    events,
		policy:    policy,
		logger:    logger.With().Str("flow", "consent").Logger(),
	}
}

// consentContext is the re-validated state both consent operations need.
type consentContext struct {
	session   *domain.AuthorizationSession
	client    *domain.Client
	resources *domain.ResourceSet
}

// loadContext re-resolves session, client and resources. Consent state is
// never trusted from submitted form fields alone. A nil outcome means the
// context is usable.
func (o *ConsentOrchestrator) loadContext(ctx context.Context, returnURL string) (*consentContext, *Outcome, error) {
	session, err := o.sessions.GetSession(ctx, returnURL)
	if err != nil {
		return nil, nil, flowerr.NewPersistenceFailure(err)
	}
	if session == nil {
		return nil, ErrorViewOf(flowerr.NewSessionNotFound()), nil
	}

	client, err := o.clients.FindByID(ctx, session.ClientID)
	if err != nil {
		return nil, nil, flowerr.NewPersistenceFailure(err)
	}
	if client == nil || !client.Enabled {
		return nil, ErrorViewOf(flowerr.NewInvalidClient(session.ClientID)), nil
	}

	resources, err := o.resources.FindByScopes(ctx, session.RequestedScopes)
	if err != nil {
		return nil, nil, flowerr.NewPersistenceFailure(err)
	}
	if resources.Empty() {
		return nil, ErrorViewOf(flowerr.NewNoMatchingResources()), nil
	}

	return &consentContext{session: session, client: client, resources: resources}, nil, nil
}

// ShowConsent renders the consent form for the pending session.
func (o *ConsentOrchestrator) ShowConsent(ctx context.Context, returnURL string) (*Outcome, error) {
	cc, errOutcome, err := o.loadContext(ctx, returnURL)
	if err != nil {
		return nil, err
	}
	if errOutcome != nil {
		return errOutcome, nil
	}
	return FormView(buildConsentView(returnURL, cc, nil)), nil
}

// ProcessConsent applies the submitted decision. Denials and grants conclude
// the session and redirect; an empty grant selection is a recoverable
// validation error, not a silent deny.
func (o *ConsentOrchestrator) ProcessConsent(ctx context.Context, principal *domain.Principal, in ConsentInput) (*Outcome, error) {
	cc, errOutcome, err := o.loadContext(ctx, in.ReturnURL)
	if err != nil {
		return nil, err
	}
	if errOutcome != nil {
		return errOutcome, nil
	}

	switch in.Button {
	case buttonNo:
		return o.deny(ctx, principal, cc, in)
	case buttonYes:
		return o.grant(ctx, principal, cc, in)
	default:
		return o.retry(in.ReturnURL, cc, &in, flowerr.NewValidation(msgInvalidSelection)), nil
	}
}

// retry re-renders the consent form with a recoverable validation error
// attached, preserving the submitted selection.
func (o *ConsentOrchestrator) retry(returnURL string, cc *consentContext, in *ConsentInput, fe *flowerr.FlowError) *Outcome {
	model := buildConsentView(returnURL, cc, in)
	model.Error = fe.Description
	return FormView(model)
}

func (o *ConsentOrchestrator) deny(ctx context.Context, principal *domain.Principal, cc *consentContext, in ConsentInput) (*Outcome, error) {
	if err := o.sessions.DenyConsent(ctx, cc.session); err != nil {
		if !errors.Is(err, domain.ErrSessionFinalized) {
			o.logger.Error().Err(err).Str("client_id", cc.client.ClientID).Msg("consent denial failed to persist")
			return ErrorView(reasonPersistence), nil
		}
	} else {
		o.events.Emit(ctx, domain.ConsentDenied{
			SubjectID: principal.SubjectID,
			ClientID:  cc.client.ClientID,
			Scopes:    cc.session.RequestedScopes,
		})
	}
	return o.concludeRedirect(cc, in.ReturnURL)
}

func (o *ConsentOrchestrator) grant(ctx context.Context, principal *domain.Principal, cc *consentContext, in ConsentInput) (*Outcome, error) {
	if len(in.ScopesConsented) == 0 {
		return o.retry(in.ReturnURL, cc, &in, flowerr.NewValidation(msgPickAtLeastOneScope)), nil
	}

	decision := &domain.ConsentDecision{
		GrantedScopes: mergeScopes(in.ScopesConsented, cc.resources.RequiredScopes()),
		Remember:      in.Remember && cc.client.AllowRememberConsent,
	}

	err := o.sessions.GrantConsent(ctx, cc.session, decision)
	switch {
	case errors.Is(err, domain.ErrSessionFinalized):
		// Re-submission of a concluded session: redirect, but do not
		// double-emit the event.
		o.logger.Debug().Str("client_id", cc.client.ClientID).Msg("consent re-submitted for finalized session")
	case err != nil:
		o.logger.Error().Err(err).Str("client_id", cc.client.ClientID).Msg("consent grant failed to persist")
		return ErrorView(reasonPersistence), nil
	default:
		o.events.Emit(ctx, domain.ConsentGranted{
			SubjectID: principal.SubjectID,
			ClientID:  cc.client.ClientID,
			Scopes:    decision.GrantedScopes,
			Remember:  decision.Remember,
		})
	}
	return o.concludeRedirect(cc, in.ReturnURL)
}

func (o *ConsentOrchestrator) concludeRedirect(cc *consentContext, returnURL string) (*Outcome, error) {
	returnURL = o.policy.Normalize(returnURL)
	if !o.policy.Validate(returnURL) {
		return nil, flowerr.NewInvalidReturnURL(returnURL)
	}
	return redirectOutcome(o.policy, cc.client, returnURL), nil
}

// buildConsentView assembles the scope rows. With no prior input everything
// is pre-checked; on re-render the submitted selection is preserved.
func buildConsentView(returnURL string, cc *consentContext, in *ConsentInput) *ConsentViewModel {
	checked := func(name string, required bool) bool {
		if required || in == nil {
			return true
		}
		for _, s := range in.ScopesConsented {
			if s == name {
				return true
			}
		}
		return false
	}

	scopeViews := func(resources []domain.Resource) []ScopeView {
		views := make([]ScopeView, 0, len(resources))
		for _, r := range resources {
			views = append(views, ScopeView{
				Name:        r.Name,
				DisplayName: r.DisplayName,
				Description: r.Description,
				Required:    r.Required,
				Emphasize:   r.Emphasize,
				Checked:     checked(r.Name, r.Required),
			})
		}
		return views
	}

	model := &ConsentViewModel{
		ReturnURL:            returnURL,
		ClientName:           cc.client.DisplayName(),
		ClientURL:            cc.client.ClientURI,
		ClientLogoURL:        cc.client.LogoURI,
		AllowRememberConsent: cc.client.AllowRememberConsent,
		IdentityScopes:       scopeViews(cc.resources.Identity),
		APIScopes:            scopeViews(cc.resources.API),
	}
	if in != nil {
		model.Remember = in.Remember
	}
	return model
}

// mergeScopes unions the consented scopes with the required ones, preserving
// submission order.
func mergeScopes(consented, required []string) []string {
	seen := make(map[string]struct{}, len(consented)+len(required))
	merged := make([]string, 0, len(consented)+len(required))
	for _, s := range append(append([]string{}, consented...), required...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}
