package echoapi

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

// indirectRedirectPage is the same-origin intermediary page used for clients
// that require PKCE. Loading it before the redirect keeps authorization
// artifacts out of the Referer header the upstream page would otherwise see.
var indirectRedirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta http-equiv="refresh" content="0;url={{.}}">
  <title>Redirecting…</title>
  <script>window.location.href = {{.}};</script>
</head>
<body>
  <p>You are now being returned to the application.</p>
  <p>Once complete, you may close this tab.</p>
</body>
</html>
`))

// formResponse is the JSON wrapper around a view model. The single-page UI
// decides which screen to draw from the view name.
type formResponse struct {
	View  string `json:"view"`
	Model any    `json:"model"`
}

// renderOutcome translates an interaction outcome into an HTTP response.
func (a *InteractionAPI) renderOutcome(ec echo.Context, out *interaction.Outcome) error {
	switch out.Kind {
	case interaction.OutcomeDirectRedirect:
		return ec.Redirect(http.StatusFound, out.URL)

	case interaction.OutcomeIndirectRedirect:
		var page strings.Builder
		if err := indirectRedirectPage.Execute(&page, out.URL); err != nil {
			return err
		}
		ec.Response().Header().Set("Referrer-Policy", "no-referrer")
		return ec.HTML(http.StatusOK, page.String())

	case interaction.OutcomeChallenge:
		authURL, err := a.broker.Challenge(
			ec.Request().Context(),
			out.Properties[domain.AssertionPropertyScheme],
			out.Properties[domain.AssertionPropertyReturnURL],
		)
		if err != nil {
			return err
		}
		return ec.Redirect(http.StatusFound, authURL)

	case interaction.OutcomeForm:
		return ec.JSON(http.StatusOK, formResponse{View: viewName(out.Model), Model: out.Model})

	case interaction.OutcomeSuccess:
		return ec.JSON(http.StatusOK, formResponse{View: viewName(out.Model), Model: out.Model})

	case interaction.OutcomeError:
		return ec.JSON(http.StatusBadRequest, echo.Map{"error": out.Reason})

	default:
		return fmt.Errorf("unhandled outcome kind %d", out.Kind)
	}
}

func viewName(model any) string {
	switch model.(type) {
	case *interaction.LoginViewModel:
		return "login"
	case *interaction.ConsentViewModel:
		return "consent"
	case *interaction.UserCodeCaptureViewModel:
		return "device_code"
	case *interaction.DeviceConsentViewModel:
		return "device_consent"
	case *interaction.DeviceCompletedViewModel:
		return "device_completed"
	case *interaction.LogoutPromptViewModel:
		return "logout_prompt"
	case *interaction.LoggedOutViewModel:
		return "logged_out"
	case *interaction.GrantsViewModel:
		return "grants"
	default:
		return "unknown"
	}
}
