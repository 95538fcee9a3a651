package interaction

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mimoto-id/mimoto/domain"
)

type logoutFixture struct {
	sessions *MockSessionProvider
	broker   *MockBroker
	manager  *MockSessionManager
	events   *MockEventSink
	opts     AccountOptions
}

func newLogoutFixture() *logoutFixture {
	return &logoutFixture{
		sessions: &MockSessionProvider{},
		broker:   &MockBroker{},
		manager:  &MockSessionManager{},
		events:   &MockEventSink{},
		opts:     DefaultAccountOptions(),
	}
}

func (f *logoutFixture) orchestrator() *LogoutOrchestrator {
	return NewLogoutOrchestrator(f.sessions, f.broker, f.manager, f.events, f.opts, zerolog.Nop())
}

func localPrincipal() *domain.Principal {
	return &domain.Principal{
		SubjectID: "user1",
		Username:  "alice",
		Claims:    []domain.Claim{{Type: domain.ClaimIdentityProvider, Value: domain.IdentityProviderLocal}},
	}
}

func TestBeginLogoutPromptsAuthenticatedUser(t *testing.T) {
	f := newLogoutFixture()

	out, err := f.orchestrator().BeginLogout(context.Background(), localPrincipal(), "")

	require.NoError(t, err)
	require.Equal(t, OutcomeForm, out.Kind)
	assert.IsType(t, &LogoutPromptViewModel{}, out.Model)
	f.manager.AssertNotCalled(t, "SignOut", mock.Anything)
}

func TestBeginLogoutAnonymousSkipsPrompt(t *testing.T) {
	f := newLogoutFixture()

	out, err := f.orchestrator().BeginLogout(context.Background(), domain.Anonymous, "")

	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, out.Kind)
	assert.Empty(t, f.events.Events)
	f.manager.AssertNotCalled(t, "SignOut", mock.Anything)
}

func TestBeginLogoutClientInitiatedSkipsPrompt(t *testing.T) {
	f := newLogoutFixture()
	f.sessions.On("GetLogoutContext", mock.Anything, "lo1").Return(&domain.LogoutContext{
		ID:                "lo1",
		ClientName:        "Sample Client",
		ShowSignOutPrompt: false,
	}, nil)
	f.manager.On("SignOut", mock.Anything).Return(nil)

	out, err := f.orchestrator().BeginLogout(context.Background(), localPrincipal(), "lo1")

	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, out.Kind)
	model := out.Model.(*LoggedOutViewModel)
	assert.Equal(t, "Sample Client", model.ClientName)
	require.Len(t, f.events.OfType("user_logout_success"), 1)
}

func TestBeginLogoutPromptDisabledByOptions(t *testing.T) {
	f := newLogoutFixture()
	f.opts.ShowLogoutPrompt = false
	f.manager.On("SignOut", mock.Anything).Return(nil)

	out, err := f.orchestrator().BeginLogout(context.Background(), localPrincipal(), "")

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, out.Kind)
}

func TestCompleteLogoutSignsOutAndEmits(t *testing.T) {
	f := newLogoutFixture()
	f.manager.On("SignOut", mock.Anything).Return(nil)

	out, err := f.orchestrator().CompleteLogout(context.Background(), localPrincipal(), "")

	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, out.Kind)
	model := out.Model.(*LoggedOutViewModel)
	assert.Empty(t, model.ExternalSignOutScheme)
	require.Len(t, f.events.OfType("user_logout_success"), 1)
	event := f.events.Events[0].(domain.UserLogoutSuccess)
	assert.Equal(t, "user1", event.SubjectID)
	f.manager.AssertCalled(t, "SignOut", mock.Anything)
}

func TestCompleteLogoutTriggersExternalSignOut(t *testing.T) {
	f := newLogoutFixture()
	principal := &domain.Principal{
		SubjectID: "user1",
		Claims:    []domain.Claim{{Type: domain.ClaimIdentityProvider, Value: "oidc"}},
	}
	f.broker.On("SupportsSignOut", "oidc").Return(true)
	f.sessions.On("CreateLogoutContext", mock.Anything).Return("lo2", nil)
	f.sessions.On("GetLogoutContext", mock.Anything, "lo2").Return(&domain.LogoutContext{
		ID:               "lo2",
		SignOutIFrameURL: "https://localhost/signout-iframe",
	}, nil)
	f.manager.On("SignOut", mock.Anything).Return(nil)

	out, err := f.orchestrator().CompleteLogout(context.Background(), principal, "")

	require.NoError(t, err)
	model := out.Model.(*LoggedOutViewModel)
	assert.Equal(t, "oidc", model.ExternalSignOutScheme)
	assert.Equal(t, "lo2", model.LogoutID)
	assert.Equal(t, "https://localhost/signout-iframe", model.SignOutIFrameURL)
}

func TestCompleteLogoutExternalProviderWithoutSignOutSupport(t *testing.T) {
	f := newLogoutFixture()
	principal := &domain.Principal{
		SubjectID: "user1",
		Claims:    []domain.Claim{{Type: domain.ClaimIdentityProvider, Value: "github"}},
	}
	f.broker.On("SupportsSignOut", "github").Return(false)
	f.manager.On("SignOut", mock.Anything).Return(nil)

	out, err := f.orchestrator().CompleteLogout(context.Background(), principal, "")

	require.NoError(t, err)
	model := out.Model.(*LoggedOutViewModel)
	assert.Empty(t, model.ExternalSignOutScheme)
	f.sessions.AssertNotCalled(t, "CreateLogoutContext", mock.Anything)
}
