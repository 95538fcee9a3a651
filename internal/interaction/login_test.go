package interaction

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mimoto-id/mimoto/domain"
	flowerr "github.com/mimoto-id/mimoto/errors"
)

type loginFixture struct {
	sessions   *MockSessionProvider
	clients    *MockClientRegistry
	identities *MockIdentityStore
	broker     *MockBroker
	manager    *MockSessionManager
	events     *MockEventSink
	orch       *LoginOrchestrator
}

func newLoginFixture() *loginFixture {
	f := &loginFixture{
		sessions:   &MockSessionProvider{},
		clients:    &MockClientRegistry{},
		identities: &MockIdentityStore{},
		broker:     &MockBroker{},
		manager:    &MockSessionManager{},
		events:     &MockEventSink{},
	}
	f.orch = NewLoginOrchestrator(
		f.sessions, f.clients, f.identities, f.broker, f.manager, f.events,
		NewRedirectPolicy(), DefaultAccountOptions(), zerolog.Nop(),
	)
	return f
}

func TestBeginLoginRedirectsToExternalWhenHintSet(t *testing.T) {
	f := newLoginFixture()
	f.sessions.On("GetSession", mock.Anything, "/authorize?x=1").Return(&domain.AuthorizationSession{
		ClientID:             "client1",
		RequestedScopes:      []string{"api1"},
		IdentityProviderHint: "idp",
	}, nil)

	out, err := f.orch.BeginLogin(context.Background(), "/authorize?x=1")

	require.NoError(t, err)
	assert.Equal(t, OutcomeChallenge, out.Kind)
	assert.Equal(t, "idp", out.Scheme)
	assert.Equal(t, "/authorize?x=1", out.Properties["returnUrl"])
}

func TestBeginLoginRendersFormWithFilteredProviders(t *testing.T) {
	f := newLoginFixture()
	f.sessions.On("GetSession", mock.Anything, "/").Return(&domain.AuthorizationSession{
		ClientID:        "client1",
		RequestedScopes: []string{"api1"},
	}, nil)
	f.broker.On("Schemes", mock.Anything).Return([]AuthScheme{
		{Name: "test", DisplayName: "Test"},
		{Name: "test1", DisplayName: "Test 1"},
		{Name: "other", DisplayName: "Other"},
	}, nil)
	f.clients.On("FindByID", mock.Anything, "client1").Return(&domain.Client{
		ClientID:                 "client1",
		Enabled:                  true,
		AllowedIdentityProviders: []string{"test", "test1"},
	}, nil)

	out, err := f.orch.BeginLogin(context.Background(), "/")

	require.NoError(t, err)
	require.Equal(t, OutcomeForm, out.Kind)
	model := out.Model.(*LoginViewModel)
	assert.Len(t, model.ExternalProviders, 2)
	assert.True(t, model.AllowLocalLogin)
}

func TestBeginLoginWithoutSessionIsBareLocalLogin(t *testing.T) {
	f := newLoginFixture()
	f.sessions.On("GetSession", mock.Anything, "").Return(nil, nil)
	f.broker.On("Schemes", mock.Anything).Return([]AuthScheme{{Name: "test", DisplayName: "Test"}}, nil)

	out, err := f.orch.BeginLogin(context.Background(), "")

	require.NoError(t, err)
	require.Equal(t, OutcomeForm, out.Kind)
	assert.Len(t, out.Model.(*LoginViewModel).ExternalProviders, 1)
}

func TestCancelWithoutSessionRedirectsToRoot(t *testing.T) {
	f := newLoginFixture()
	f.sessions.On("GetSession", mock.Anything, "/asdf").Return(nil, nil)

	out, err := f.orch.SubmitCredentials(context.Background(), LoginInput{Button: "cancel", ReturnURL: "/asdf"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDirectRedirect, out.Kind)
	assert.Equal(t, "/", out.URL)
}

func TestCancelWithPKCESessionRedirectsIndirect(t *testing.T) {
	f := newLoginFixture()
	session := &domain.AuthorizationSession{ClientID: "client1", RequestedScopes: []string{"api1"}}
	f.sessions.On("GetSession", mock.Anything, "/asdf").Return(session, nil)
	f.sessions.On("DenyConsent", mock.Anything, session).Return(nil)
	f.clients.On("FindByID", mock.Anything, "client1").Return(&domain.Client{
		ClientID:    "client1",
		Enabled:     true,
		RequirePKCE: true,
	}, nil)

	out, err := f.orch.SubmitCredentials(context.Background(), LoginInput{Button: "cancel", ReturnURL: "/asdf"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeIndirectRedirect, out.Kind)
	assert.Equal(t, "/asdf", out.URL)
}

func TestSubmitCredentialsRejectsUnsafeReturnURL(t *testing.T) {
	f := newLoginFixture()
	f.sessions.On("GetSession", mock.Anything, "http://localhost").Return(nil, nil)

	out, err := f.orch.SubmitCredentials(context.Background(), LoginInput{
		Button:    "login",
		Username:  "user1",
		Password:  "pw",
		ReturnURL: "http://localhost",
	})

	assert.Nil(t, out)
	assert.True(t, flowerr.IsCode(err, flowerr.CodeInvalidReturnURL))
	f.identities.AssertNotCalled(t, "VerifyPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitCredentialsSuccess(t *testing.T) {
	f := newLoginFixture()
	session := &domain.AuthorizationSession{ClientID: "client1", RequestedScopes: []string{"api1"}}
	f.sessions.On("GetSession", mock.Anything, "/asdf").Return(session, nil)
	f.identities.On("VerifyPassword", mock.Anything, "user1", "pw").Return(&domain.LocalUser{ID: "u1", Username: "user1"}, nil)
	f.manager.On("SignIn", mock.Anything, mock.Anything).Return(nil)
	f.clients.On("FindByID", mock.Anything, "client1").Return(&domain.Client{ClientID: "client1", Enabled: true}, nil)

	out, err := f.orch.SubmitCredentials(context.Background(), LoginInput{
		Button:    "login",
		Username:  "user1",
		Password:  "pw",
		ReturnURL: "/asdf",
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDirectRedirect, out.Kind)
	assert.Equal(t, "/asdf", out.URL)

	events := f.events.OfType("user_login_success")
	require.Len(t, events, 1)
	ev := events[0].(domain.UserLoginSuccess)
	assert.Equal(t, "u1", ev.SubjectID)
	assert.Equal(t, "client1", ev.ClientID)
	f.manager.AssertCalled(t, "SignIn", mock.Anything, mock.Anything)
}

func TestSubmitCredentialsFailureReRendersForm(t *testing.T) {
	f := newLoginFixture()
	f.sessions.On("GetSession", mock.Anything, "/").Return(nil, nil)
	f.identities.On("VerifyPassword", mock.Anything, "user1", "bad").Return(nil, domain.ErrInvalidCredentials)
	f.broker.On("Schemes", mock.Anything).Return([]AuthScheme{{Name: "test", DisplayName: "Test"}}, nil)

	out, err := f.orch.SubmitCredentials(context.Background(), LoginInput{
		Button:    "login",
		Username:  "user1",
		Password:  "bad",
		ReturnURL: "/",
	})

	require.NoError(t, err)
	require.Equal(t, OutcomeForm, out.Kind)
	model := out.Model.(*LoginViewModel)
	assert.Equal(t, "user1", model.Username)
	assert.Equal(t, "Invalid username or password", model.Error)
	assert.Len(t, model.ExternalProviders, 1)

	require.Len(t, f.events.OfType("user_login_failure"), 1)
	assert.Empty(t, f.events.OfType("user_login_success"))
	f.manager.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything)
}
