package domain

import (
	"errors"
	"time"
)

// ErrSessionFinalized is returned by the authorization session provider when a
// consent decision is applied to a session that has already been finalized.
// Orchestrators treat it as success but suppress the duplicate domain event.
var ErrSessionFinalized = errors.New("authorization session already finalized")

// AuthorizationSession is the pending OIDC authorize request the interaction
// flows operate on. It is owned and persisted by the authorization session
// provider; this package only models what the flows read.
type AuthorizationSession struct {
	ID                   string    `json:"id"`
	ClientID             string    `json:"client_id"`
	SubjectID            string    `json:"subject_id,omitempty"`
	RequestedScopes      []string  `json:"requested_scopes"`
	IdentityProviderHint string    `json:"identity_provider_hint,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// LogoutContext carries what the logout flow needs to finish an end-session
// request: where to send the browser afterwards and how to signal clients.
type LogoutContext struct {
	ID                    string `json:"id"`
	ClientName            string `json:"client_name,omitempty"`
	PostLogoutRedirectURI string `json:"post_logout_redirect_uri,omitempty"`
	SignOutIFrameURL      string `json:"sign_out_iframe_url,omitempty"`
	ShowSignOutPrompt     bool   `json:"show_sign_out_prompt"`
}

// DeviceAuthorizationStatus is the state of a pending device grant.
type DeviceAuthorizationStatus string

const (
	DeviceAuthorizationPending    DeviceAuthorizationStatus = "pending"
	DeviceAuthorizationAuthorized DeviceAuthorizationStatus = "authorized"
	DeviceAuthorizationDenied     DeviceAuthorizationStatus = "denied"
)

// DeviceAuthorization is a pending RFC 8628 device grant keyed by the short
// user code the person types into the secondary browser.
type DeviceAuthorization struct {
	UserCode        string                    `json:"user_code"`
	DeviceCode      string                    `json:"device_code"`
	ClientID        string                    `json:"client_id"`
	RequestedScopes []string                  `json:"requested_scopes"`
	Status          DeviceAuthorizationStatus `json:"status"`
	SubjectID       string                    `json:"subject_id,omitempty"`
	GrantedScopes   []string                  `json:"granted_scopes,omitempty"`
	ExpiresAt       time.Time                 `json:"expires_at"`
}
