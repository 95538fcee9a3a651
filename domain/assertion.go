package domain

// Property keys the external identity broker records on an assertion when the
// challenge round-trip starts.
const (
	AssertionPropertyScheme    = "scheme"
	AssertionPropertyReturnURL = "returnUrl"
)

// ExternalIdentityAssertion is the outcome of one external federation
// handshake. The broker produces exactly one per callback; the external
// callback flow consumes it exactly once and then discards it.
type ExternalIdentityAssertion struct {
	SchemeName string            `json:"scheme_name"`
	Claims     []Claim           `json:"claims"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Scheme returns the originating scheme, preferring the property recorded at
// challenge time over the scheme the callback arrived on.
func (a *ExternalIdentityAssertion) Scheme() string {
	if s := a.Properties[AssertionPropertyScheme]; s != "" {
		return s
	}
	return a.SchemeName
}

// ReturnURL returns the return URL recorded at challenge time, or "" when the
// handshake started without one.
func (a *ExternalIdentityAssertion) ReturnURL() string {
	return a.Properties[AssertionPropertyReturnURL]
}

// Subject extracts the federation-stable subject identifier. Display names and
// email addresses are deliberately not acceptable substitutes.
func (a *ExternalIdentityAssertion) Subject() (string, bool) {
	return FindClaim(a.Claims, ClaimSubject, legacyClaimNameIdentifier)
}
