package domain

import "strings"

// JWT-style claim types used throughout the interaction flows.
const (
	ClaimSubject          = "sub"
	ClaimName             = "name"
	ClaimGivenName        = "given_name"
	ClaimFamilyName       = "family_name"
	ClaimEmail            = "email"
	ClaimIdentityProvider = "idp"
)

// Legacy SOAP-style claim type URIs still emitted by some federation stacks
// (SAML bridges, older WS-Fed brokers). Recognized on input, never emitted.
const (
	legacyClaimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	legacyClaimName           = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	legacyClaimGivenName      = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/givenname"
	legacyClaimSurname        = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/surname"
	legacyClaimEmail          = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
)

// Claim is a single (type, value) pair carried by a user or an external
// identity assertion.
type Claim struct {
	Type  string `bson:"type" json:"type"`
	Value string `bson:"value" json:"value"`
}

// FindClaim returns the value of the first claim with any of the given types.
func FindClaim(claims []Claim, types ...string) (string, bool) {
	for _, t := range types {
		for _, c := range claims {
			if c.Type == t && c.Value != "" {
				return c.Value, true
			}
		}
	}
	return "", false
}

// DeriveNameAndEmailClaims maps the claims of an external assertion onto the
// JWT-style "name" and "email" claims used for locally provisioned accounts.
//
// Precedence for the display name: an explicit name claim wins, then the
// concatenation of given and family name, then whichever single fragment is
// present. When nothing name-like exists, no name claim is produced. The email
// claim is copied through under the JWT type when present.
func DeriveNameAndEmailClaims(claims []Claim) []Claim {
	var out []Claim

	if name, ok := FindClaim(claims, ClaimName, legacyClaimName); ok {
		out = append(out, Claim{Type: ClaimName, Value: name})
	} else {
		given, _ := FindClaim(claims, ClaimGivenName, legacyClaimGivenName)
		family, _ := FindClaim(claims, ClaimFamilyName, legacyClaimSurname)
		if full := strings.TrimSpace(given + " " + family); full != "" {
			out = append(out, Claim{Type: ClaimName, Value: full})
		}
	}

	if email, ok := FindClaim(claims, ClaimEmail, legacyClaimEmail); ok {
		out = append(out, Claim{Type: ClaimEmail, Value: email})
	}
	return out
}
