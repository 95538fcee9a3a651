package sessionstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/mimoto-id/mimoto/domain"
	"github.com/mimoto-id/mimoto/internal/interaction"
)

// DeviceStore implements interaction.DeviceSessionProvider in memory. Device
// authorizations are keyed by their user code; the paired device polls the
// token endpoint against the device code out of band.
type DeviceStore struct {
	devices *ttlcache.Cache[string, *domain.DeviceAuthorization]

	// Serializes CompleteAuthorization so duplicate submissions cannot both
	// see a pending authorization.
	mu sync.Mutex
}

// NewDeviceStore creates a DeviceStore whose entries expire with their
// authorization.
func NewDeviceStore(ttl time.Duration) *DeviceStore {
	s := &DeviceStore{
		devices: ttlcache.New(ttlcache.WithTTL[string, *domain.DeviceAuthorization](ttl)),
	}
	go s.devices.Start()
	return s
}

// Stage registers a pending device authorization. The user code is matched
// case-insensitively; people type it by hand.
func (s *DeviceStore) Stage(da *domain.DeviceAuthorization) {
	ttl := ttlcache.DefaultTTL
	if !da.ExpiresAt.IsZero() {
		ttl = time.Until(da.ExpiresAt)
	}
	s.devices.Set(normalizeUserCode(da.UserCode), da, ttl)
}

// FindByUserCode returns the pending authorization for the code, or
// (nil, nil) when none exists.
func (s *DeviceStore) FindByUserCode(_ context.Context, userCode string) (*domain.DeviceAuthorization, error) {
	item := s.devices.Get(normalizeUserCode(userCode))
	if item == nil {
		return nil, nil
	}
	return item.Value(), nil
}

// CompleteAuthorization applies the subject's decision. A second decision on
// the same code reports domain.ErrSessionFinalized.
func (s *DeviceStore) CompleteAuthorization(_ context.Context, userCode, subjectID string, decision *domain.ConsentDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.devices.Get(normalizeUserCode(userCode))
	if item == nil {
		return domain.ErrSessionFinalized
	}

	da := item.Value()
	if da.Status != domain.DeviceAuthorizationPending {
		return domain.ErrSessionFinalized
	}

	da.SubjectID = subjectID
	if decision.Denied() {
		da.Status = domain.DeviceAuthorizationDenied
	} else {
		da.Status = domain.DeviceAuthorizationAuthorized
		da.GrantedScopes = decision.GrantedScopes
	}
	return nil
}

// Close stops the cache cleanup goroutine.
func (s *DeviceStore) Close() {
	s.devices.Stop()
}

func normalizeUserCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ interaction.DeviceSessionProvider = (*DeviceStore)(nil)
