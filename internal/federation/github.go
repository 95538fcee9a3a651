package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	githubOAuth2 "golang.org/x/oauth2/github"

	"github.com/mimoto-id/mimoto/config"
)

var (
	GithubUserInfoEndpoint   = "https://api.github.com/user"
	GithubUserEmailsEndpoint = "https://api.github.com/user/emails"
)

// GitHubProvider adapts GitHub's OAuth2 flavor. GitHub is not OIDC: the user
// id comes from the REST API and the primary email needs a second call.
type GitHubProvider struct {
	name        string
	displayName string
	conf        *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider, forcing the scopes needed to
// read the profile and email.
func NewGitHubProvider(pc config.ProviderConfig) (*GitHubProvider, error) {
	if pc.ClientID == "" || pc.ClientSecret == "" {
		return nil, ErrProviderMisconfigured
	}

	name := pc.Name
	if name == "" {
		name = "github"
	}
	displayName := pc.DisplayName
	if displayName == "" {
		displayName = "GitHub"
	}

	scopes := pc.Scopes
	for _, required := range []string{"read:user", "user:email"} {
		found := false
		for _, s := range scopes {
			if s == required {
				found = true
				break
			}
		}
		if !found {
			scopes = append(scopes, required)
		}
	}

	return &GitHubProvider{
		name:        name,
		displayName: displayName,
		conf: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  pc.RedirectURL,
			Scopes:       scopes,
			Endpoint:     githubOAuth2.Endpoint,
		},
	}, nil
}

func (g *GitHubProvider) Name() string        { return g.name }
func (g *GitHubProvider) DisplayName() string { return g.displayName }

func (g *GitHubProvider) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

func (g *GitHubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeCodeFailed, err)
	}
	return token, nil
}

func (g *GitHubProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	client := httpClient(ctx, g.conf, token)

	resp, err := client.Get(GithubUserInfoEndpoint)
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
		ID        json.Number `json:"id"`
		Login     string      `json:"login"`
		Name      string      `json:"name"`
		Email     string      `json:"email"`
		AvatarURL string      `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}

	var rawData map[string]any
	_ = json.Unmarshal(body, &rawData)

	givenName, familyName := splitName(raw.Name)

	info := &ExternalUserInfo{
		ProviderUserID: raw.ID.String(),
		Email:          raw.Email,
		GivenName:      givenName,
		FamilyName:     familyName,
		Username:       raw.Login,
		PictureURL:     raw.AvatarURL,
		RawData:        rawData,
	}

	// The profile email may be private; prefer the verified primary email
	// from the emails endpoint when available.
	if email := g.primaryEmail(client); email != "" {
		info.Email = email
	}
	return info, nil
}

func (g *GitHubProvider) primaryEmail(client *http.Client) string {
	resp, err := client.Get(GithubUserEmailsEndpoint)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &emails); err != nil {
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

// EndSessionURL returns ""; GitHub has no federated sign-out endpoint.
func (g *GitHubProvider) EndSessionURL() string { return "" }

func splitName(fullName string) (string, string) {
	if fullName == "" {
		return "", ""
	}
	parts := strings.SplitN(fullName, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

var _ Provider = (*GitHubProvider)(nil)
