package echoapi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatedServer() *echo.Echo {
	e := echo.New()
	manager := NewCookieSessionManager([]byte("0123456789abcdef0123456789abcdef"), "mimoto.session", time.Hour, false)
	e.Use(SessionMiddleware(manager))
	api := NewInteractionAPI(nil, nil, nil, nil, nil, nil, nil, zerolog.Nop())
	api.RegisterRoutes(e)
	return e
}

func TestAnonymousConsentAndDeviceRedirectToLogin(t *testing.T) {
	e := newGatedServer()

	tests := []struct {
		name   string
		method string
		target string
		form   url.Values
	}{
		{name: "consent view", method: http.MethodGet, target: "/consent?returnUrl=%2Fauthorize"},
		{name: "consent decision", method: http.MethodPost, target: "/consent", form: url.Values{
			"button":          {"yes"},
			"returnUrl":       {"/authorize"},
			"scopesConsented": {"openid"},
		}},
		{name: "device view", method: http.MethodGet, target: "/device?userCode=ABCD-1234"},
		{name: "device decision", method: http.MethodPost, target: "/device", form: url.Values{
			"button":          {"yes"},
			"userCode":        {"ABCD-1234"},
			"scopesConsented": {"openid"},
		}},
		{name: "grants view", method: http.MethodGet, target: "/grants"},
		{name: "grants revoke", method: http.MethodPost, target: "/grants/revoke", form: url.Values{
			"clientId": {"client1"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body string
			if tt.form != nil {
				body = tt.form.Encode()
			}
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(body))
			if tt.form != nil {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			require.Equal(t, http.StatusFound, rec.Code)
			location := rec.Header().Get(echo.HeaderLocation)
			assert.True(t, strings.HasPrefix(location, "/account/login?returnUrl="), location)

			returnURL, err := url.QueryUnescape(strings.TrimPrefix(location, "/account/login?returnUrl="))
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(returnURL, strings.SplitN(tt.target, "?", 2)[0]), returnURL)
		})
	}
}
