package interaction

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mimoto-id/mimoto/domain"
)

// --- Mock collaborators shared by the flow tests ---

type MockSessionProvider struct {
	mock.Mock
}

func (m *MockSessionProvider) GetSession(ctx context.Context, returnURL string) (*domain.AuthorizationSession, error) {
	args := m.Called(ctx, returnURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthorizationSession), args.Error(1)
}

func (m *MockSessionProvider) GrantConsent(ctx context.Context, session *domain.AuthorizationSession, decision *domain.ConsentDecision) error {
	return m.Called(ctx, session, decision).Error(0)
}

func (m *MockSessionProvider) DenyConsent(ctx context.Context, session *domain.AuthorizationSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionProvider) ListConsents(ctx context.Context, subjectID string) ([]domain.Grant, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Grant), args.Error(1)
}

func (m *MockSessionProvider) RevokeConsent(ctx context.Context, subjectID, clientID string) error {
	return m.Called(ctx, subjectID, clientID).Error(0)
}

func (m *MockSessionProvider) CreateLogoutContext(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSessionProvider) GetLogoutContext(ctx context.Context, logoutID string) (*domain.LogoutContext, error) {
	args := m.Called(ctx, logoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LogoutContext), args.Error(1)
}

type MockDeviceProvider struct {
	mock.Mock
}

func (m *MockDeviceProvider) FindByUserCode(ctx context.Context, userCode string) (*domain.DeviceAuthorization, error) {
	args := m.Called(ctx, userCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceAuthorization), args.Error(1)
}

func (m *MockDeviceProvider) CompleteAuthorization(ctx context.Context, userCode, subjectID string, decision *domain.ConsentDecision) error {
	return m.Called(ctx, userCode, subjectID, decision).Error(0)
}

type MockClientRegistry struct {
	mock.Mock
}

func (m *MockClientRegistry) FindByID(ctx context.Context, clientID string) (*domain.Client, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

type MockResourceRegistry struct {
	mock.Mock
}

func (m *MockResourceRegistry) FindByScopes(ctx context.Context, scopes []string) (*domain.ResourceSet, error) {
	args := m.Called(ctx, scopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResourceSet), args.Error(1)
}

type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) VerifyPassword(ctx context.Context, username, password string) (*domain.LocalUser, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LocalUser), args.Error(1)
}

func (m *MockIdentityStore) FindByExternalLogin(ctx context.Context, provider, providerKey string) (*domain.LocalUser, error) {
	args := m.Called(ctx, provider, providerKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LocalUser), args.Error(1)
}

func (m *MockIdentityStore) Create(ctx context.Context, user *domain.LocalUser) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockIdentityStore) AddExternalLogin(ctx context.Context, userID, provider, providerKey string) error {
	return m.Called(ctx, userID, provider, providerKey).Error(0)
}

func (m *MockIdentityStore) AddClaims(ctx context.Context, userID string, claims []domain.Claim) error {
	return m.Called(ctx, userID, claims).Error(0)
}

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Schemes(ctx context.Context) ([]AuthScheme, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]AuthScheme), args.Error(1)
}

func (m *MockBroker) Assertion(ctx context.Context, key string) (*domain.ExternalIdentityAssertion, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExternalIdentityAssertion), args.Error(1)
}

func (m *MockBroker) ClearAssertion(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockBroker) SupportsSignOut(scheme string) bool {
	return m.Called(scheme).Bool(0)
}

type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) SignIn(ctx context.Context, principal *domain.Principal) error {
	return m.Called(ctx, principal).Error(0)
}

func (m *MockSessionManager) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockEventSink records emitted events for assertions.
type MockEventSink struct {
	Events []domain.Event
}

func (m *MockEventSink) Emit(_ context.Context, event domain.Event) {
	m.Events = append(m.Events, event)
}

func (m *MockEventSink) OfType(eventType string) []domain.Event {
	var out []domain.Event
	for _, e := range m.Events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
