package domain

// Event is a domain event emitted by the interaction flows. Emission is
// fire-and-forget; sinks log failures instead of propagating them.
type Event interface {
	EventType() string
}

// UserLoginSuccess is emitted after a successful local or external login.
type UserLoginSuccess struct {
	SubjectID string `json:"subject_id"`
	Username  string `json:"username,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

func (UserLoginSuccess) EventType() string { return "user_login_success" }

// UserLoginFailure is emitted when a credential check fails.
type UserLoginFailure struct {
	Username string `json:"username"`
	ClientID string `json:"client_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (UserLoginFailure) EventType() string { return "user_login_failure" }

// ConsentGranted is emitted when a subject approves a consent request.
type ConsentGranted struct {
	SubjectID string   `json:"subject_id"`
	ClientID  string   `json:"client_id"`
	Scopes    []string `json:"scopes"`
	Remember  bool     `json:"remember"`
}

func (ConsentGranted) EventType() string { return "consent_granted" }

// ConsentDenied is emitted when a subject rejects a consent request.
type ConsentDenied struct {
	SubjectID string   `json:"subject_id"`
	ClientID  string   `json:"client_id"`
	Scopes    []string `json:"scopes,omitempty"`
}

func (ConsentDenied) EventType() string { return "consent_denied" }

// GrantsRevoked is emitted when a subject revokes a persisted grant.
type GrantsRevoked struct {
	SubjectID string `json:"subject_id"`
	ClientID  string `json:"client_id"`
}

func (GrantsRevoked) EventType() string { return "grants_revoked" }

// UserLogoutSuccess is emitted after a local sign-out.
type UserLogoutSuccess struct {
	SubjectID string `json:"subject_id"`
	Username  string `json:"username,omitempty"`
}

func (UserLogoutSuccess) EventType() string { return "user_logout_success" }
