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

type consentFixture struct {
	sessions  *MockSessionProvider
	clients   *MockClientRegistry
	resources *MockResourceRegistry
	events    *MockEventSink
	orch      *ConsentOrchestrator
}

func newConsentFixture() *consentFixture {
	f := &consentFixture{
		sessions:  &MockSessionProvider{},
		clients:   &MockClientRegistry{},
		resources: &MockResourceRegistry{},
		events:    &MockEventSink{},
	}
	f.orch = NewConsentOrchestrator(f.sessions, f.clients, f.resources, f.events, NewRedirectPolicy(), zerolog.Nop())
	return f
}

var consentUser = &domain.Principal{SubjectID: "user1"}

func (f *consentFixture) withSession() *domain.AuthorizationSession {
	session := &domain.AuthorizationSession{ClientID: "client1", RequestedScopes: []string{"openid", "api1"}}
	f.sessions.On("GetSession", mock.Anything, mock.Anything).Return(session, nil)
	return session
}

func (f *consentFixture) withClient(c *domain.Client) {
	f.clients.On("FindByID", mock.Anything, "client1").Return(c, nil)
}

func (f *consentFixture) withResources() {
	f.resources.On("FindByScopes", mock.Anything, []string{"openid", "api1"}).Return(&domain.ResourceSet{
		Identity: []domain.Resource{{Name: "openid", DisplayName: "Your identity", Required: true}},
		API:      []domain.Resource{{Name: "api1", DisplayName: "API 1"}},
	}, nil)
}

func TestShowConsentNoSessionShowsError(t *testing.T) {
	f := newConsentFixture()
	f.sessions.On("GetSession", mock.Anything, "/").Return(nil, nil)

	out, err := f.orch.ShowConsent(context.Background(), "/")

	require.NoError(t, err)
	assert.Equal(t, OutcomeError, out.Kind)
	assert.Equal(t, flowerr.NewSessionNotFound().Description, out.Reason)
}

func TestShowConsentUnknownClientShowsError(t *testing.T) {
	f := newConsentFixture()
	f.withSession()
	f.clients.On("FindByID", mock.Anything, "client1").Return(nil, nil)

	out, err := f.orch.ShowConsent(context.Background(), "/")

	require.NoError(t, err)
	assert.Equal(t, OutcomeError, out.Kind)
	assert.Equal(t, flowerr.NewInvalidClient("client1").Description, out.Reason)
}

func TestShowConsentDisabledClientShowsError(t *testing.T) {
	f := newConsentFixture()
	f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", Enabled: false})

	out, err := f.orch.ShowConsent(context.Background(), "/")

	require.NoError(t, err)
	assert.Equal(t, OutcomeError, out.Kind)
}

func TestShowConsentNoResourcesShowsError(t *testing.T) {
	f := newConsentFixture()
	f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", Enabled: true})
	f.resources.On("FindByScopes", mock.Anything, []string{"openid", "api1"}).Return(&domain.ResourceSet{}, nil)

	out, err := f.orch.ShowConsent(context.Background(), "/")

	require.NoError(t, err)
	assert.Equal(t, OutcomeError, out.Kind)
	assert.Equal(t, flowerr.NewNoMatchingResources().Description, out.Reason)
}

func TestShowConsentBuildsViewModel(t *testing.T) {
	f := newConsentFixture()
	f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", ClientName: "Client 1", Enabled: true, AllowRememberConsent: true})
	f.withResources()

	out, err := f.orch.ShowConsent(context.Background(), "/ret")

	require.NoError(t, err)
	require.Equal(t, OutcomeForm, out.Kind)
	model := out.Model.(*ConsentViewModel)
	assert.Equal(t, "Client 1", model.ClientName)
	assert.True(t, model.AllowRememberConsent)
	require.Len(t, model.IdentityScopes, 1)
	assert.True(t, model.IdentityScopes[0].Required)
	assert.True(t, model.IdentityScopes[0].Checked)
	require.Len(t, model.APIScopes, 1)
	assert.True(t, model.APIScopes[0].Checked, "everything pre-checked on first render")
}

func TestProcessConsentDenyEmitsEventAndRedirects(t *testing.T) {
	f := newConsentFixture()
	session := f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", Enabled: true, RequirePKCE: true})
	f.withResources()
	f.sessions.On("DenyConsent", mock.Anything, session).Return(nil)

	out, err := f.orch.ProcessConsent(context.Background(), consentUser, ConsentInput{Button: "no", ReturnURL: "/ret"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeIndirectRedirect, out.Kind, "PKCE client gets the intermediary page")
	assert.Equal(t, "/ret", out.URL)
	require.Len(t, f.events.OfType("consent_denied"), 1)
}

func TestProcessConsentYesWithoutScopesIsRecoverableValidation(t *testing.T) {
	f := newConsentFixture()
	f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", Enabled: true})
	f.withResources()

	out, err := f.orch.ProcessConsent(context.Background(), consentUser, ConsentInput{Button: "yes", ReturnURL: "/ret"})

	require.NoError(t, err)
	require.Equal(t, OutcomeForm, out.Kind)
	assert.Equal(t, msgPickAtLeastOneScope, out.Model.(*ConsentViewModel).Error)
	f.sessions.AssertNotCalled(t, "GrantConsent", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.events.OfType("consent_granted"))
}

func TestProcessConsentUnknownButtonReRenders(t *testing.T) {
	f := newConsentFixture()
	f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", Enabled: true})
	f.withResources()

	out, err := f.orch.ProcessConsent(context.Background(), consentUser, ConsentInput{Button: "invalid", ReturnURL: "/ret"})

	require.NoError(t, err)
	require.Equal(t, OutcomeForm, out.Kind)
	assert.NotEmpty(t, out.Model.(*ConsentViewModel).Error)
}

func TestProcessConsentGrantIncludesRequiredScopes(t *testing.T) {
	f := newConsentFixture()
	session := f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", Enabled: true, AllowRememberConsent: true})
	f.withResources()

	var persisted *domain.ConsentDecision
	f.sessions.On("GrantConsent", mock.Anything, session, mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(2).(*domain.ConsentDecision)
	}).Return(nil)

	out, err := f.orch.ProcessConsent(context.Background(), consentUser, ConsentInput{
		Button:          "yes",
		ReturnURL:       "/ret",
		ScopesConsented: []string{"api1"},
		Remember:        true,
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDirectRedirect, out.Kind)
	require.NotNil(t, persisted)
	assert.ElementsMatch(t, []string{"api1", "openid"}, persisted.GrantedScopes, "required openid scope always granted")
	assert.True(t, persisted.Remember)

	events := f.events.OfType("consent_granted")
	require.Len(t, events, 1)
	assert.Equal(t, "user1", events[0].(domain.ConsentGranted).SubjectID)
}

func TestProcessConsentGrantFailureShowsErrorView(t *testing.T) {
	f := newConsentFixture()
	session := f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", Enabled: true})
	f.withResources()
	f.sessions.On("GrantConsent", mock.Anything, session, mock.Anything).Return(assert.AnError)

	out, err := f.orch.ProcessConsent(context.Background(), consentUser, ConsentInput{
		Button:          "yes",
		ReturnURL:       "/ret",
		ScopesConsented: []string{"api1"},
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeError, out.Kind)
	assert.Empty(t, f.events.OfType("consent_granted"))
}

func TestProcessConsentFinalizedSessionDoesNotDoubleEmit(t *testing.T) {
	f := newConsentFixture()
	session := f.withSession()
	f.withClient(&domain.Client{ClientID: "client1", Enabled: true})
	f.withResources()
	f.sessions.On("GrantConsent", mock.Anything, session, mock.Anything).Return(domain.ErrSessionFinalized)

	out, err := f.orch.ProcessConsent(context.Background(), consentUser, ConsentInput{
		Button:          "yes",
		ReturnURL:       "/ret",
		ScopesConsented: []string{"api1"},
	})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDirectRedirect, out.Kind, "redirect still resolves")
	assert.Empty(t, f.events.OfType("consent_granted"), "no duplicate event for a finalized session")
}
