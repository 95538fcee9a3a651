package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mimoto-id/mimoto/domain"
)

type grantsFixture struct {
	sessions  *MockSessionProvider
	clients   *MockClientRegistry
	resources *MockResourceRegistry
	events    *MockEventSink
	orch      *GrantsOrchestrator
}

func newGrantsFixture() *grantsFixture {
	f := &grantsFixture{
		sessions:  &MockSessionProvider{},
		clients:   &MockClientRegistry{},
		resources: &MockResourceRegistry{},
		events:    &MockEventSink{},
	}
	f.orch = NewGrantsOrchestrator(f.sessions, f.clients, f.resources, f.events, zerolog.Nop())
	return f
}

func TestListGrantsJoinsClientAndResourceMetadata(t *testing.T) {
	f := newGrantsFixture()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.sessions.On("ListConsents", mock.Anything, "user1").Return([]domain.Grant{
		{ClientID: "client1", SubjectID: "user1", Scopes: []string{"openid", "api1"}, CreatedAt: created},
	}, nil)
	f.clients.On("FindByID", mock.Anything, "client1").Return(&domain.Client{
		ClientID:   "client1",
		ClientName: "Sample Client",
		ClientURI:  "https://client.example.com",
		Enabled:    true,
	}, nil)
	f.resources.On("FindByScopes", mock.Anything, []string{"openid", "api1"}).Return(&domain.ResourceSet{
		Identity: []domain.Resource{{Name: "openid", DisplayName: "Your user identifier"}},
		API:      []domain.Resource{{Name: "api1"}},
	}, nil)

	out, err := f.orch.ListGrants(context.Background(), &domain.Principal{SubjectID: "user1"})

	require.NoError(t, err)
	require.Equal(t, OutcomeForm, out.Kind)
	model := out.Model.(*GrantsViewModel)
	require.Len(t, model.Grants, 1)
	g := model.Grants[0]
	assert.Equal(t, "Sample Client", g.ClientName)
	assert.Equal(t, "https://client.example.com", g.ClientURL)
	assert.Equal(t, created, g.CreatedAt)
	assert.Equal(t, []string{"Your user identifier"}, g.IdentityScopes)
	assert.Equal(t, []string{"api1"}, g.APIScopes)
}

func TestListGrantsSkipsUnregisteredClients(t *testing.T) {
	f := newGrantsFixture()
	f.sessions.On("ListConsents", mock.Anything, "user1").Return([]domain.Grant{
		{ClientID: "gone", SubjectID: "user1", Scopes: []string{"api1"}},
	}, nil)
	f.clients.On("FindByID", mock.Anything, "gone").Return(nil, nil)

	out, err := f.orch.ListGrants(context.Background(), &domain.Principal{SubjectID: "user1"})

	require.NoError(t, err)
	assert.Empty(t, out.Model.(*GrantsViewModel).Grants)
}

func TestListGrantsEmpty(t *testing.T) {
	f := newGrantsFixture()
	f.sessions.On("ListConsents", mock.Anything, "user1").Return([]domain.Grant{}, nil)

	out, err := f.orch.ListGrants(context.Background(), &domain.Principal{SubjectID: "user1"})

	require.NoError(t, err)
	assert.Empty(t, out.Model.(*GrantsViewModel).Grants)
}

func TestRevokeEmitsEventAndRedirectsBack(t *testing.T) {
	f := newGrantsFixture()
	f.sessions.On("RevokeConsent", mock.Anything, "user1", "client1").Return(nil)

	out, err := f.orch.Revoke(context.Background(), &domain.Principal{SubjectID: "user1"}, "client1")

	require.NoError(t, err)
	require.Equal(t, OutcomeDirectRedirect, out.Kind)
	assert.Equal(t, GrantsPath, out.URL)
	require.Len(t, f.events.OfType("grants_revoked"), 1)
	event := f.events.Events[0].(domain.GrantsRevoked)
	assert.Equal(t, "client1", event.ClientID)
}
