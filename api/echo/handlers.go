// Package echoapi is the HTTP surface of the interaction server. Handlers
// parse requests, call the interaction orchestrators, and render their
// outcomes; no flow decisions live here.
package echoapi

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mimoto-id/mimoto/internal/federation"
	"github.com/mimoto-id/mimoto/internal/interaction"

	flowerr "github.com/mimoto-id/mimoto/errors"
)

// InteractionAPI holds the orchestrators behind the interaction endpoints.
type InteractionAPI struct {
	login    *interaction.LoginOrchestrator
	external *interaction.ExternalCallbackHandler
	consent  *interaction.ConsentOrchestrator
	device   *interaction.DeviceFlowOrchestrator
	logout   *interaction.LogoutOrchestrator
	grants   *interaction.GrantsOrchestrator
	broker   *federation.Broker
	logger   zerolog.Logger
}

func NewInteractionAPI(
	login *interaction.LoginOrchestrator,
	external *interaction.ExternalCallbackHandler,
	consent *interaction.ConsentOrchestrator,
	device *interaction.DeviceFlowOrchestrator,
	logout *interaction.LogoutOrchestrator,
	grants *interaction.GrantsOrchestrator,
	broker *federation.Broker,
	logger zerolog.Logger,
) *InteractionAPI {
	return &InteractionAPI{
		login:    login,
		external: external,
		consent:  consent,
		device:   device,
		logout:   logout,
		grants:   grants,
		broker:   broker,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes registers the interaction endpoints.
func (a *InteractionAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/account/login", a.LoginHandler)
	e.POST("/account/login", a.LoginSubmitHandler)
	e.GET("/account/logout", a.LogoutHandler)
	e.POST("/account/logout", a.LogoutSubmitHandler)

	e.GET("/external/challenge/:scheme", a.ExternalChallengeHandler)
	e.GET("/external/callback", a.ExternalCallbackHandler)
	e.POST("/external/callback", a.ExternalCallbackHandler)

	e.GET("/consent", a.ConsentHandler, a.requireAuth)
	e.POST("/consent", a.ConsentSubmitHandler, a.requireAuth)

	e.GET("/device", a.DeviceHandler, a.requireAuth)
	e.POST("/device", a.DeviceSubmitHandler, a.requireAuth)

	e.GET("/grants", a.GrantsHandler, a.requireAuth)
	e.POST("/grants/revoke", a.GrantsRevokeHandler, a.requireAuth)
}

// requireAuth sends anonymous browsers to the login screen with the original
// path as the post-login return URL. Consent, device and grant decisions
// must always be attributable to a signed-in subject.
func (a *InteractionAPI) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ec echo.Context) error {
		if !PrincipalFromContext(ec.Request().Context()).Authenticated() {
			target := "/account/login?returnUrl=" + url.QueryEscape(ec.Request().RequestURI)
			return ec.Redirect(http.StatusFound, target)
		}
		return next(ec)
	}
}

// LoginHandler shows the login screen for the pending authorize request.
func (a *InteractionAPI) LoginHandler(ec echo.Context) error {
	out, err := a.login.BeginLogin(ec.Request().Context(), ec.QueryParam("returnUrl"))
	return a.respond(ec, out, err)
}

// LoginSubmitHandler applies a login form submission.
func (a *InteractionAPI) LoginSubmitHandler(ec echo.Context) error {
	in := interaction.LoginInput{
		Username:      ec.FormValue("username"),
		Password:      ec.FormValue("password"),
		Button:        ec.FormValue("button"),
		ReturnURL:     ec.FormValue("returnUrl"),
		RememberLogin: ec.FormValue("rememberLogin") == "true",
	}
	out, err := a.login.SubmitCredentials(ec.Request().Context(), in)
	return a.respond(ec, out, err)
}

// ExternalChallengeHandler validates the return URL and redirects the
// browser to the named upstream provider.
func (a *InteractionAPI) ExternalChallengeHandler(ec echo.Context) error {
	out, err := a.external.Challenge(ec.Request().Context(), ec.Param("scheme"), ec.QueryParam("returnUrl"))
	return a.respond(ec, out, err)
}

// ExternalCallbackHandler receives the provider redirect, completes the
// handshake, and resumes the interrupted flow.
func (a *InteractionAPI) ExternalCallbackHandler(ec echo.Context) error {
	ctx := ec.Request().Context()

	state := ec.FormValue("state")
	if state == "" {
		state = ec.QueryParam("state")
	}
	code := ec.FormValue("code")
	if code == "" {
		code = ec.QueryParam("code")
	}
	if providerErr := ec.QueryParam("error"); providerErr != "" {
		return a.respond(ec, nil, flowerr.NewExternalAuthError(providerErr))
	}

	key, err := a.broker.HandleCallback(ctx, state, code)
	if err != nil {
		return a.respond(ec, nil, flowerr.NewExternalAuthError(err.Error()))
	}

	out, err := a.external.Callback(ctx, key)
	return a.respond(ec, out, err)
}

// ConsentHandler shows the consent screen for the pending authorize request.
func (a *InteractionAPI) ConsentHandler(ec echo.Context) error {
	out, err := a.consent.ShowConsent(ec.Request().Context(), ec.QueryParam("returnUrl"))
	return a.respond(ec, out, err)
}

// ConsentSubmitHandler applies a consent form submission.
func (a *InteractionAPI) ConsentSubmitHandler(ec echo.Context) error {
	ctx := ec.Request().Context()
	form, err := ec.FormParams()
	if err != nil {
		return err
	}
	in := interaction.ConsentInput{
		Button:          ec.FormValue("button"),
		ReturnURL:       ec.FormValue("returnUrl"),
		ScopesConsented: form["scopesConsented"],
		Remember:        ec.FormValue("rememberConsent") == "true",
	}
	out, err := a.consent.ProcessConsent(ctx, PrincipalFromContext(ctx), in)
	return a.respond(ec, out, err)
}

// DeviceHandler shows the user code entry form, or the device consent screen
// once a code is supplied.
func (a *InteractionAPI) DeviceHandler(ec echo.Context) error {
	userCode := ec.QueryParam("userCode")
	if userCode == "" {
		userCode = ec.QueryParam("user_code")
	}
	out, err := a.device.CaptureUserCode(ec.Request().Context(), userCode)
	return a.respond(ec, out, err)
}

// DeviceSubmitHandler applies a device consent submission.
func (a *InteractionAPI) DeviceSubmitHandler(ec echo.Context) error {
	ctx := ec.Request().Context()
	form, err := ec.FormParams()
	if err != nil {
		return err
	}
	in := interaction.DeviceInput{
		UserCode:        ec.FormValue("userCode"),
		Button:          ec.FormValue("button"),
		ScopesConsented: form["scopesConsented"],
		Remember:        ec.FormValue("rememberConsent") == "true",
	}
	out, err := a.device.Confirm(ctx, PrincipalFromContext(ctx), in)
	return a.respond(ec, out, err)
}

// LogoutHandler starts the logout flow, prompting when configured to.
func (a *InteractionAPI) LogoutHandler(ec echo.Context) error {
	ctx := ec.Request().Context()
	out, err := a.logout.BeginLogout(ctx, PrincipalFromContext(ctx), ec.QueryParam("logoutId"))
	return a.respondLogout(ec, out, err)
}

// LogoutSubmitHandler completes a confirmed logout.
func (a *InteractionAPI) LogoutSubmitHandler(ec echo.Context) error {
	ctx := ec.Request().Context()
	out, err := a.logout.CompleteLogout(ctx, PrincipalFromContext(ctx), ec.FormValue("logoutId"))
	return a.respondLogout(ec, out, err)
}

// respondLogout hands the browser to the upstream provider's end-session
// endpoint when the logged-out view carries a federated sign-out scheme.
func (a *InteractionAPI) respondLogout(ec echo.Context, out *interaction.Outcome, err error) error {
	if err == nil && out.Kind == interaction.OutcomeSuccess {
		if model, ok := out.Model.(*interaction.LoggedOutViewModel); ok && model.ExternalSignOutScheme != "" {
			if url := a.broker.SignOutURL(model.ExternalSignOutScheme); url != "" {
				return ec.Redirect(http.StatusFound, url)
			}
		}
	}
	return a.respond(ec, out, err)
}

// GrantsHandler lists the signed-in subject's persisted grants.
func (a *InteractionAPI) GrantsHandler(ec echo.Context) error {
	ctx := ec.Request().Context()
	out, err := a.grants.ListGrants(ctx, PrincipalFromContext(ctx))
	return a.respond(ec, out, err)
}

// GrantsRevokeHandler revokes one grant and returns to the grants page.
func (a *InteractionAPI) GrantsRevokeHandler(ec echo.Context) error {
	ctx := ec.Request().Context()
	out, err := a.grants.Revoke(ctx, PrincipalFromContext(ctx), ec.FormValue("clientId"))
	return a.respond(ec, out, err)
}

// respond renders the outcome, or maps a flow error onto an HTTP status.
func (a *InteractionAPI) respond(ec echo.Context, out *interaction.Outcome, err error) error {
	if err == nil {
		return a.renderOutcome(ec, out)
	}

	var fe *flowerr.FlowError
	if errors.As(err, &fe) {
		status := http.StatusBadRequest
		if fe.Code == flowerr.CodePersistence {
			status = http.StatusInternalServerError
			a.logger.Error().Err(err).Str("path", ec.Path()).Msg("interaction flow failed")
		} else {
			a.logger.Warn().Err(err).Str("path", ec.Path()).Msg("interaction request rejected")
		}
		return ec.JSON(status, echo.Map{
			"error":             fe.Code,
			"error_description": fe.Description,
		})
	}
	return err
}
