package domain

// Client is a registered relying party. Client records are owned by an
// external client registry; the interaction flows only read them.
type Client struct {
	ClientID                 string   `bson:"_id" json:"client_id"`
	ClientName               string   `bson:"client_name,omitempty" json:"client_name,omitempty"`
	ClientURI                string   `bson:"client_uri,omitempty" json:"client_uri,omitempty"`
	LogoURI                  string   `bson:"logo_uri,omitempty" json:"logo_uri,omitempty"`
	Enabled                  bool     `bson:"enabled" json:"enabled"`
	RequirePKCE              bool     `bson:"require_pkce" json:"require_pkce"`
	AllowRememberConsent     bool     `bson:"allow_remember_consent" json:"allow_remember_consent"`
	AllowedIdentityProviders []string `bson:"allowed_identity_providers,omitempty" json:"allowed_identity_providers,omitempty"`
}

// AllowsIdentityProvider reports whether the given external scheme may be
// offered for this client. An empty restriction list means unrestricted.
func (c *Client) AllowsIdentityProvider(scheme string) bool {
	if len(c.AllowedIdentityProviders) == 0 {
		return true
	}
	for _, p := range c.AllowedIdentityProviders {
		if p == scheme {
			return true
		}
	}
	return false
}

// DisplayName returns the client name, falling back to the client id.
func (c *Client) DisplayName() string {
	if c.ClientName != "" {
		return c.ClientName
	}
	return c.ClientID
}
