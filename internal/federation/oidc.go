package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/mimoto-id/mimoto/config"
)

// OIDCProvider is a generic OpenID Connect provider driven entirely by
// configured endpoints. Providers with standard userinfo responses need no
// dedicated implementation.
type OIDCProvider struct {
	name          string
	displayName   string
	userInfoURL   string
	endSessionURL string
	conf          *oauth2.Config
}

// NewOIDCProvider builds an OIDCProvider from configuration. Auth, token and
// userinfo endpoints must be set explicitly; issuer discovery is not
// performed.
func NewOIDCProvider(pc config.ProviderConfig) (*OIDCProvider, error) {
	if pc.ClientID == "" || pc.ClientSecret == "" || pc.AuthURL == "" || pc.TokenURL == "" || pc.UserInfoURL == "" {
		return nil, ErrProviderMisconfigured
	}

	scopes := pc.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	displayName := pc.DisplayName
	if displayName == "" {
		displayName = pc.Name
	}

	return &OIDCProvider{
		name:          pc.Name,
		displayName:   displayName,
		userInfoURL:   pc.UserInfoURL,
		endSessionURL: pc.EndSessionURL,
		conf: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  pc.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  pc.AuthURL,
				TokenURL: pc.TokenURL,
			},
		},
	}, nil
}

func (p *OIDCProvider) Name() string        { return p.name }
func (p *OIDCProvider) DisplayName() string { return p.displayName }

func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeCodeFailed, err)
	}
	return token, nil
}

// FetchUserInfo calls the configured userinfo endpoint and maps the standard
// OIDC claims.
func (p *OIDCProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	resp, err := httpClient(ctx, p.conf, token).Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrFetchUserInfoFailed, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}

	var raw struct {
		Sub               string `json:"sub"`
		Name              string `json:"name"`
		GivenName         string `json:"given_name"`
		FamilyName        string `json:"family_name"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
		Picture           string `json:"picture"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}
	if raw.Sub == "" {
		return nil, fmt.Errorf("%w: userinfo response carried no sub claim", ErrFetchUserInfoFailed)
	}

	var rawData map[string]any
	_ = json.Unmarshal(body, &rawData)

	username := raw.Name
	if username == "" {
		username = raw.PreferredUsername
	}

	return &ExternalUserInfo{
		ProviderUserID: raw.Sub,
		Email:          raw.Email,
		GivenName:      raw.GivenName,
		FamilyName:     raw.FamilyName,
		Username:       username,
		PictureURL:     raw.Picture,
		RawData:        rawData,
	}, nil
}

func (p *OIDCProvider) EndSessionURL() string { return p.endSessionURL }

var _ Provider = (*OIDCProvider)(nil)
