package interaction

import "time"

// AccountOptions are the hosting-layer policies of the login and logout
// screens.
type AccountOptions struct {
	AllowLocalLogin              bool
	AllowRememberLogin           bool
	RememberMeLoginDuration      time.Duration
	ShowLogoutPrompt             bool
	AutomaticRedirectAfterLogout bool
	InvalidCredentialsMessage    string
}

// DefaultAccountOptions mirror a conventional interactive deployment.
func DefaultAccountOptions() AccountOptions {
	return AccountOptions{
		AllowLocalLogin:              true,
		AllowRememberLogin:           true,
		RememberMeLoginDuration:      30 * 24 * time.Hour,
		ShowLogoutPrompt:             true,
		AutomaticRedirectAfterLogout: true,
		InvalidCredentialsMessage:    "Invalid username or password",
	}
}
