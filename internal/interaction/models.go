package interaction

import "time"

// ExternalProviderView is one entry of the external login picker.
type ExternalProviderView struct {
	DisplayName string `json:"display_name"`
	Scheme      string `json:"scheme"`
}

// LoginViewModel backs the login form.
type LoginViewModel struct {
	ReturnURL         string                 `json:"return_url,omitempty"`
	Username          string                 `json:"username,omitempty"`
	RememberLogin     bool                   `json:"remember_login,omitempty"`
	AllowLocalLogin   bool                   `json:"allow_local_login"`
	AllowRememberMe   bool                   `json:"allow_remember_me"`
	ExternalProviders []ExternalProviderView `json:"external_providers,omitempty"`
	Error             string                 `json:"error,omitempty"`
}

// LoginInput is the parsed login form submission.
type LoginInput struct {
	Username      string
	Password      string
	Button        string
	ReturnURL     string
	RememberLogin bool
}

// ScopeView is one row of the consent screen.
type ScopeView struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Emphasize   bool   `json:"emphasize,omitempty"`
	Checked     bool   `json:"checked,omitempty"`
}

// ConsentViewModel backs the consent form for both the browser and the
// device flow.
type ConsentViewModel struct {
	ReturnURL            string      `json:"return_url,omitempty"`
	ClientName           string      `json:"client_name"`
	ClientURL            string      `json:"client_url,omitempty"`
	ClientLogoURL        string      `json:"client_logo_url,omitempty"`
	AllowRememberConsent bool        `json:"allow_remember_consent"`
	Remember             bool        `json:"remember,omitempty"`
	IdentityScopes       []ScopeView `json:"identity_scopes,omitempty"`
	APIScopes            []ScopeView `json:"api_scopes,omitempty"`
	Error                string      `json:"error,omitempty"`
}

// ConsentInput is the parsed consent form submission.
type ConsentInput struct {
	Button          string
	ReturnURL       string
	ScopesConsented []string
	Remember        bool
}

// UserCodeCaptureViewModel backs the device flow code entry form.
type UserCodeCaptureViewModel struct {
	UserCode string `json:"user_code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DeviceConsentViewModel backs the device flow consent form.
type DeviceConsentViewModel struct {
	UserCode string `json:"user_code"`
	ConsentViewModel
}

// DeviceInput is the parsed device consent submission.
type DeviceInput struct {
	UserCode        string
	Button          string
	ScopesConsented []string
	Remember        bool
}

// DeviceCompletedViewModel confirms a device flow decision. The paired device
// learns the outcome by polling the token endpoint, so there is no redirect.
type DeviceCompletedViewModel struct {
	ClientName string `json:"client_name,omitempty"`
	Granted    bool   `json:"granted"`
}

// LogoutPromptViewModel backs the "are you sure" logout prompt.
type LogoutPromptViewModel struct {
	LogoutID string `json:"logout_id,omitempty"`
}

// LoggedOutViewModel backs the post-logout page.
type LoggedOutViewModel struct {
	LogoutID              string `json:"logout_id,omitempty"`
	ClientName            string `json:"client_name,omitempty"`
	PostLogoutRedirectURI string `json:"post_logout_redirect_uri,omitempty"`
	SignOutIFrameURL      string `json:"sign_out_iframe_url,omitempty"`
	AutomaticRedirect     bool   `json:"automatic_redirect"`
	ExternalSignOutScheme string `json:"external_sign_out_scheme,omitempty"`
}

// GrantView is one persisted consent joined with client and resource
// metadata for the grants page.
type GrantView struct {
	ClientID       string    `json:"client_id"`
	ClientName     string    `json:"client_name"`
	ClientURL      string    `json:"client_url,omitempty"`
	ClientLogoURL  string    `json:"client_logo_url,omitempty"`
	IdentityScopes []string  `json:"identity_scopes,omitempty"`
	APIScopes      []string  `json:"api_scopes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// GrantsViewModel backs the grants page.
type GrantsViewModel struct {
	Grants []GrantView `json:"grants"`
}
