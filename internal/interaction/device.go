package interaction

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/domain"
	flowerr "github.com/mimoto-id/mimoto/errors"
)

// ErrMissingUserCode signals a transport-layer bug: Confirm was invoked
// without the user code that CaptureUserCode is required to carry forward.
var ErrMissingUserCode = errors.New("device confirm called without a user code")

const reasonUnknownUserCode = "unknown or expired user code"

// DeviceFlowOrchestrator runs the browser half of the device authorization
// grant: user code capture, then the same consent decision the regular
// consent flow applies, concluded with a completion view instead of a
// redirect (the paired device polls the token endpoint on its own).
type DeviceFlowOrchestrator struct {
	devices   DeviceSessionProvider
	clients   ClientRegistry
	resources ResourceRegistry
	events    EventSink
	logger    zerolog.Logger
}

func NewDeviceFlowOrchestrator(
	devices DeviceSessionProvider,
	clients ClientRegistry,
	resources ResourceRegistry,
	events EventSink,
	logger zerolog.Logger,
) *DeviceFlowOrchestrator {
	return &DeviceFlowOrchestrator{
		devices:   devices,
		clients:   clients,
		resources: resources,
		events:    events,
		logger:    logger.With().Str("flow", "device").Logger(),
	}
}

// CaptureUserCode renders the code entry form when no code was supplied,
// otherwise resolves the device request and moves on to consent.
func (o *DeviceFlowOrchestrator) CaptureUserCode(ctx context.Context, userCode string) (*Outcome, error) {
	if userCode == "" {
		return FormView(&UserCodeCaptureViewModel{}), nil
	}

	cc, errOutcome, err := o.loadContext(ctx, userCode)
	if err != nil {
		return nil, err
	}
	if errOutcome != nil {
		return errOutcome, nil
	}
	return FormView(buildDeviceConsentView(userCode, cc, nil)), nil
}

// Confirm applies the subject's decision for the device request. A missing
// user code is a caller contract violation, not a user input error.
func (o *DeviceFlowOrchestrator) Confirm(ctx context.Context, principal *domain.Principal, in DeviceInput) (*Outcome, error) {
	if in.UserCode == "" {
		return nil, ErrMissingUserCode
	}

	cc, errOutcome, err := o.loadContext(ctx, in.UserCode)
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
		return o.retry(in.UserCode, cc, &in, flowerr.NewValidation(msgInvalidSelection)), nil
	}
}

// retry re-renders the device consent form with a recoverable validation
// error attached, preserving the submitted selection.
func (o *DeviceFlowOrchestrator) retry(userCode string, cc *deviceContext, in *DeviceInput, fe *flowerr.FlowError) *Outcome {
	model := buildDeviceConsentView(userCode, cc, in)
	model.Error = fe.Description
	return FormView(model)
}

// deviceContext mirrors consentContext for a device authorization.
type deviceContext struct {
	device    *domain.DeviceAuthorization
	client    *domain.Client
	resources *domain.ResourceSet
}

func (o *DeviceFlowOrchestrator) loadContext(ctx context.Context, userCode string) (*deviceContext, *Outcome, error) {
	device, err := o.devices.FindByUserCode(ctx, userCode)
	if err != nil {
		return nil, nil, flowerr.NewPersistenceFailure(err)
	}
	if device == nil {
		return nil, ErrorView(reasonUnknownUserCode), nil
	}

	client, err := o.clients.FindByID(ctx, device.ClientID)
	if err != nil {
		return nil, nil, flowerr.NewPersistenceFailure(err)
	}
	if client == nil || !client.Enabled {
		return nil, ErrorViewOf(flowerr.NewInvalidClient(device.ClientID)), nil
	}

	resources, err := o.resources.FindByScopes(ctx, device.RequestedScopes)
	if err != nil {
		return nil, nil, flowerr.NewPersistenceFailure(err)
	}
	if resources.Empty() {
		return nil, ErrorViewOf(flowerr.NewNoMatchingResources()), nil
	}

	return &deviceContext{device: device, client: client, resources: resources}, nil, nil
}

func (o *DeviceFlowOrchestrator) deny(ctx context.Context, principal *domain.Principal, cc *deviceContext, in DeviceInput) (*Outcome, error) {
	err := o.devices.CompleteAuthorization(ctx, in.UserCode, principal.SubjectID, &domain.ConsentDecision{})
	switch {
	case errors.Is(err, domain.ErrSessionFinalized):
	case err != nil:
		o.logger.Error().Err(err).Str("client_id", cc.client.ClientID).Msg("device denial failed to persist")
		return ErrorView(reasonPersistence), nil
	default:
		o.events.Emit(ctx, domain.ConsentDenied{
			SubjectID: principal.SubjectID,
			ClientID:  cc.client.ClientID,
			Scopes:    cc.device.RequestedScopes,
		})
	}
	return SuccessView(&DeviceCompletedViewModel{ClientName: cc.client.DisplayName()}), nil
}

func (o *DeviceFlowOrchestrator) grant(ctx context.Context, principal *domain.Principal, cc *deviceContext, in DeviceInput) (*Outcome, error) {
	if len(in.ScopesConsented) == 0 {
		return o.retry(in.UserCode, cc, &in, flowerr.NewValidation(msgPickAtLeastOneScope)), nil
	}

	decision := &domain.ConsentDecision{
		GrantedScopes: mergeScopes(in.ScopesConsented, cc.resources.RequiredScopes()),
		Remember:      in.Remember && cc.client.AllowRememberConsent,
	}

	err := o.devices.CompleteAuthorization(ctx, in.UserCode, principal.SubjectID, decision)
	switch {
	case errors.Is(err, domain.ErrSessionFinalized):
		o.logger.Debug().Str("client_id", cc.client.ClientID).Msg("device consent re-submitted for concluded request")
	case err != nil:
		o.logger.Error().Err(err).Str("client_id", cc.client.ClientID).Msg("device grant failed to persist")
		return ErrorView(reasonPersistence), nil
	default:
		o.events.Emit(ctx, domain.ConsentGranted{
			SubjectID: principal.SubjectID,
			ClientID:  cc.client.ClientID,
			Scopes:    decision.GrantedScopes,
			Remember:  decision.Remember,
		})
	}
	return SuccessView(&DeviceCompletedViewModel{ClientName: cc.client.DisplayName(), Granted: true}), nil
}

func buildDeviceConsentView(userCode string, cc *deviceContext, in *DeviceInput) *DeviceConsentViewModel {
	var consentIn *ConsentInput
	if in != nil {
		consentIn = &ConsentInput{
			Button:          in.Button,
			ScopesConsented: in.ScopesConsented,
			Remember:        in.Remember,
		}
	}
	inner := buildConsentView("", &consentContext{
		client:    cc.client,
		resources: cc.resources,
	}, consentIn)
	return &DeviceConsentViewModel{UserCode: userCode, ConsentViewModel: *inner}
}
