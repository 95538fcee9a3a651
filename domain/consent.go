package domain

import "time"

// ConsentDecision is a subject's answer to a consent prompt. It is created
// transiently per request and handed to the authorization session provider to
// persist; the interaction flows never store it themselves.
type ConsentDecision struct {
	GrantedScopes []string `json:"granted_scopes,omitempty"`
	Remember      bool     `json:"remember,omitempty"`
}

// Denied reports whether the decision grants nothing.
func (d *ConsentDecision) Denied() bool {
	return d == nil || len(d.GrantedScopes) == 0
}

// Grant is a persisted consent as reported back by the authorization session
// provider when enumerating a subject's grants.
type Grant struct {
	ClientID  string    `bson:"client_id" json:"client_id"`
	SubjectID string    `bson:"subject_id" json:"subject_id"`
	Scopes    []string  `bson:"scopes" json:"scopes"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at,omitempty" json:"expires_at"`
}
