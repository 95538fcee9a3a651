package interaction

import (
	"net/url"
	"strings"

	"github.com/mimoto-id/mimoto/domain"
)

// RedirectMode says how a validated return URL must be delivered.
type RedirectMode int

const (
	// RedirectModeDirect is a plain 302.
	RedirectModeDirect RedirectMode = iota
	// RedirectModeIndirect renders an intermediary same-origin page. Used
	// for PKCE clients: a 302 to a URL carrying the authorization response
	// can leak it through the Referer header of the next navigation.
	RedirectModeIndirect
)

// RedirectPolicy decides whether a return URL may be redirected to at all,
// and whether the redirect must be indirect. It is pure over its inputs; it
// never substitutes a URL on failure.
type RedirectPolicy struct {
	allowedOrigins []string
}

// NewRedirectPolicy builds a policy. allowedOrigins are absolute origins the
// hosting layer explicitly trusts (e.g. "https://app.example.com"); local
// paths are always acceptable.
func NewRedirectPolicy(allowedOrigins ...string) *RedirectPolicy {
	return &RedirectPolicy{allowedOrigins: allowedOrigins}
}

// Normalize maps an absent return URL to the site root.
func (p *RedirectPolicy) Normalize(returnURL string) string {
	if returnURL == "" {
		return "/"
	}
	return returnURL
}

// Validate reports whether returnURL is safe to redirect to: an
// application-local path, or an explicitly allow-listed origin. Everything
// cross-origin is rejected.
func (p *RedirectPolicy) Validate(returnURL string) bool {
	returnURL = p.Normalize(returnURL)

	if strings.HasPrefix(returnURL, "/") {
		// "//host" and "/\host" are scheme-relative escapes, not local paths.
		if strings.HasPrefix(returnURL, "//") || strings.HasPrefix(returnURL, "/\\") {
			return false
		}
		u, err := url.Parse(returnURL)
		return err == nil && u.Host == "" && u.Scheme == ""
	}

	for _, origin := range p.allowedOrigins {
		if returnURL == origin || strings.HasPrefix(returnURL, origin+"/") {
			return true
		}
	}
	return false
}

// ChooseRedirectMode picks direct vs indirect delivery for a validated URL.
// client may be nil when no authorization session is attached.
func (p *RedirectPolicy) ChooseRedirectMode(client *domain.Client, returnURL string) RedirectMode {
	if client != nil && client.RequirePKCE {
		return RedirectModeIndirect
	}
	return RedirectModeDirect
}

// redirectOutcome resolves a validated return URL into the matching outcome.
func redirectOutcome(p *RedirectPolicy, client *domain.Client, returnURL string) *Outcome {
	if p.ChooseRedirectMode(client, returnURL) == RedirectModeIndirect {
		return IndirectRedirect(returnURL)
	}
	return DirectRedirect(returnURL)
}
