// Package sessionstore provides the in-memory authorization session provider
// backing a single-instance deployment. Pending authorize requests, logout
// contexts and device authorizations live in TTL caches; remembered consent
// grants go through a pluggable grant store so they survive restarts.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

// GrantStore persists remembered consent grants.
type GrantStore interface {
	Save(ctx context.Context, grant *domain.Grant) error
	ListBySubject(ctx context.Context, subjectID string) ([]domain.Grant, error)
	Revoke(ctx context.Context, subjectID, clientID string) error
}

// Options tune the store's cache lifetimes.
type Options struct {
	// SessionTTL bounds how long a staged authorize request stays valid.
	SessionTTL time.Duration
	// LogoutTTL bounds how long a logout context stays resolvable.
	LogoutTTL time.Duration
	// GrantLifetime is how long a remembered grant is kept; zero means no
	// expiry.
	GrantLifetime time.Duration
}

// DefaultOptions returns the lifetimes used when none are configured.
func DefaultOptions() Options {
	return Options{
		SessionTTL: 15 * time.Minute,
		LogoutTTL:  15 * time.Minute,
	}
}

// Store implements interaction.AuthorizationSessionProvider. Sessions are
// correlated by the return URL of the authorize request that spawned them.
type Store struct {
	sessions  *ttlcache.Cache[string, *domain.AuthorizationSession]
	concluded *ttlcache.Cache[string, struct{}]
	logouts   *ttlcache.Cache[string, *domain.LogoutContext]
	grants    GrantStore
	opts      Options

	// Serializes conclude so duplicate submissions cannot both pass the
	// finalized check.
	mu sync.Mutex
}

// NewStore creates a Store persisting remembered grants in grants.
func NewStore(grants GrantStore, opts Options) *Store {
	s := &Store{
		sessions:  ttlcache.New(ttlcache.WithTTL[string, *domain.AuthorizationSession](opts.SessionTTL)),
		concluded: ttlcache.New(ttlcache.WithTTL[string, struct{}](opts.SessionTTL)),
		logouts:   ttlcache.New(ttlcache.WithTTL[string, *domain.LogoutContext](opts.LogoutTTL)),
		grants:    grants,
		opts:      opts,
	}
	go s.sessions.Start()
	go s.concluded.Start()
	go s.logouts.Start()
	return s
}

// StageSession registers a pending authorize request under its return URL.
// The authorize endpoint calls this before sending the browser to the login
// or consent screen.
func (s *Store) StageSession(returnURL string, session *domain.AuthorizationSession) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	s.sessions.Set(returnURL, session, ttlcache.DefaultTTL)
}

// AttachSubject records the authenticated subject on the staged session so a
// later remembered consent can be attributed.
func (s *Store) AttachSubject(returnURL, subjectID string) {
	if item := s.sessions.Get(returnURL); item != nil {
		item.Value().SubjectID = subjectID
	}
}

// GetSession returns the pending session for returnURL, or (nil, nil) when
// none is staged.
func (s *Store) GetSession(_ context.Context, returnURL string) (*domain.AuthorizationSession, error) {
	item := s.sessions.Get(returnURL)
	if item == nil {
		return nil, nil
	}
	return item.Value(), nil
}

// GrantConsent finalizes the session with the subject's decision and, when
// asked to remember it, persists the grant.
func (s *Store) GrantConsent(ctx context.Context, session *domain.AuthorizationSession, decision *domain.ConsentDecision) error {
	if err := s.conclude(session); err != nil {
		return err
	}
	if decision.Remember && session.SubjectID != "" {
		grant := &domain.Grant{
			ClientID:  session.ClientID,
			SubjectID: session.SubjectID,
			Scopes:    decision.GrantedScopes,
			CreatedAt: time.Now().UTC(),
		}
		if s.opts.GrantLifetime > 0 {
			grant.ExpiresAt = grant.CreatedAt.Add(s.opts.GrantLifetime)
		}
		return s.grants.Save(ctx, grant)
	}
	return nil
}

// DenyConsent finalizes the session with a denial.
func (s *Store) DenyConsent(_ context.Context, session *domain.AuthorizationSession) error {
	return s.conclude(session)
}

func (s *Store) conclude(session *domain.AuthorizationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.concluded.Has(session.ID) {
		return domain.ErrSessionFinalized
	}
	s.concluded.Set(session.ID, struct{}{}, ttlcache.DefaultTTL)
	return nil
}

// ListConsents returns the subject's remembered grants.
func (s *Store) ListConsents(ctx context.Context, subjectID string) ([]domain.Grant, error) {
	return s.grants.ListBySubject(ctx, subjectID)
}

// RevokeConsent removes the subject's remembered grant for one client.
func (s *Store) RevokeConsent(ctx context.Context, subjectID, clientID string) error {
	return s.grants.Revoke(ctx, subjectID, clientID)
}

// CreateLogoutContext mints a logout context for a user-initiated logout that
// needs federated sign-out to return to.
func (s *Store) CreateLogoutContext(_ context.Context) (string, error) {
	id := uuid.NewString()
	s.logouts.Set(id, &domain.LogoutContext{ID: id, ShowSignOutPrompt: true}, ttlcache.DefaultTTL)
	return id, nil
}

// StageLogoutContext registers a client-initiated end-session context under
// its ID.
func (s *Store) StageLogoutContext(lc *domain.LogoutContext) {
	if lc.ID == "" {
		lc.ID = uuid.NewString()
	}
	s.logouts.Set(lc.ID, lc, ttlcache.DefaultTTL)
}

// GetLogoutContext returns the logout context for id, or (nil, nil) when it
// is unknown or expired.
func (s *Store) GetLogoutContext(_ context.Context, id string) (*domain.LogoutContext, error) {
	item := s.logouts.Get(id)
	if item == nil {
		return nil, nil
	}
	return item.Value(), nil
}

// Close stops the cache cleanup goroutines.
func (s *Store) Close() {
	s.sessions.Stop()
	s.concluded.Stop()
	s.logouts.Stop()
}

var _ interaction.AuthorizationSessionProvider = (*Store)(nil)
