package domain

// Principal is the authenticated browser user for the current request. The
// transport layer builds it from the local session cookie and passes it
// explicitly into every interaction call; there is no ambient request state.
type Principal struct {
	SubjectID string  `json:"subject_id"`
	Username  string  `json:"username,omitempty"`
	Claims    []Claim `json:"claims,omitempty"`
}

// Anonymous is the unauthenticated principal.
var Anonymous = &Principal{}

// Authenticated reports whether the principal identifies a signed-in subject.
func (p *Principal) Authenticated() bool {
	return p != nil && p.SubjectID != ""
}

// IdentityProvider returns the identity-provider-of-record claim, or "" when
// the principal carries none (local password login records "local").
func (p *Principal) IdentityProvider() string {
	if p == nil {
		return ""
	}
	idp, _ := FindClaim(p.Claims, ClaimIdentityProvider)
	return idp
}

// IdentityProviderLocal marks principals signed in with local credentials.
const IdentityProviderLocal = "local"
