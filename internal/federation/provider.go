// Package federation drives the OAuth2 handshake against upstream identity
// providers and stages the resulting identity assertions for the interaction
// flows to consume.
package federation

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/mimoto-id/mimoto/domain"
)

// ExternalUserInfo holds standardized user information retrieved from an
// upstream provider's user info endpoint.
type ExternalUserInfo struct {
	ProviderUserID string
	Email          string
	GivenName      string
	FamilyName     string
	Username       string
	PictureURL     string
	RawData        map[string]any
}

// Provider is one configured upstream identity provider. Implementations
// own the provider-specific endpoint and user info details.
type Provider interface {
	// Name is the unique scheme name this provider registers under.
	Name() string

	// DisplayName is what the login screen shows on the provider button.
	DisplayName() string

	// AuthCodeURL builds the authorization URL the browser is sent to,
	// carrying the given state for CSRF protection.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUserInfo retrieves the signed-in user's profile with the token.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error)

	// EndSessionURL is the provider's logout endpoint, or "" when the
	// provider has no federated sign-out.
	EndSessionURL() string
}

// Claims converts the fetched profile into the claim set staged on the
// assertion. The subject claim is always present; the rest only when the
// provider returned them.
func (u *ExternalUserInfo) Claims() []domain.Claim {
	claims := []domain.Claim{{Type: domain.ClaimSubject, Value: u.ProviderUserID}}
	if u.Username != "" {
		claims = append(claims, domain.Claim{Type: domain.ClaimName, Value: u.Username})
	}
	if u.GivenName != "" {
		claims = append(claims, domain.Claim{Type: domain.ClaimGivenName, Value: u.GivenName})
	}
	if u.FamilyName != "" {
		claims = append(claims, domain.Claim{Type: domain.ClaimFamilyName, Value: u.FamilyName})
	}
	if u.Email != "" {
		claims = append(claims, domain.Claim{Type: domain.ClaimEmail, Value: u.Email})
	}
	return claims
}

func httpClient(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) *http.Client {
	return conf.Client(ctx, token)
}
