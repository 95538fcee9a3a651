package domain

import (
	"errors"
	"time"
)

// ErrUserNotFound is returned by identity store lookups that match nothing.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidCredentials is returned when a username/password pair does not
// verify. Callers must not distinguish "no such user" from "wrong password".
var ErrInvalidCredentials = errors.New("invalid username or password")

// ExternalLogin binds a local account to an identity at an external provider.
type ExternalLogin struct {
	Provider    string `bson:"provider" json:"provider"`
	ProviderKey string `bson:"provider_key" json:"provider_key"`
}

// LocalUser is an account in the local identity store. Accounts are either
// registered with a password or provisioned just-in-time on first external
// login (in which case PasswordHash stays empty).
type LocalUser struct {
	ID             string          `bson:"_id,omitempty" json:"id"`
	Username       string          `bson:"username" json:"username"`
	PasswordHash   string          `bson:"password_hash,omitempty" json:"-"`
	Claims         []Claim         `bson:"claims,omitempty" json:"claims,omitempty"`
	ExternalLogins []ExternalLogin `bson:"external_logins,omitempty" json:"external_logins,omitempty"`
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
	LastLoginAt    *time.Time      `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// HasExternalLogin reports whether the account is already bound to the given
// external identity.
func (u *LocalUser) HasExternalLogin(provider, key string) bool {
	for _, l := range u.ExternalLogins {
		if l.Provider == provider && l.ProviderKey == key {
			return true
		}
	}
	return false
}
