package oauth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Defaults(t *testing.T) {
	svc, mgr, clock := newTestService(t)

	resp, err := svc.Registry.Register(context.Background(), &RegistrationRequest{
		ClientName:   "Claude",
		RedirectURIs: []string{"http://localhost:33418/callback"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.ClientID, "client_"))
	assert.Len(t, resp.ClientID, len("client_")+32)
	assert.Equal(t, []string{"authorization_code"}, resp.GrantTypes)
	assert.Equal(t, []string{"code"}, resp.ResponseTypes)
	assert.Equal(t, "none", resp.TokenEndpointAuthMethod)
	assert.Equal(t, DefaultScope, resp.Scope)
	assert.Equal(t, clock.now.Unix(), resp.ClientIDIssuedAt)

	stored, err := mgr.OAuthStore().GetClient(context.Background(), resp.ClientID)
	require.NoError(t, err)
	assert.Equal(t, "Claude", stored.ClientName)
	assert.Equal(t, "none", stored.TokenEndpointAuthMethod)
	assert.Equal(t, DefaultScope, stored.Scope)
}

func TestRegister_FiltersGrantTypes(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Registry.Register(context.Background(), &RegistrationRequest{
		GrantTypes: []string{"authorization_code", "refresh_token"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"authorization_code"}, resp.GrantTypes)
}

func TestRegister_RejectsUnsupportedGrantTypes(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, gts := range [][]string{{"refresh_token"}, {"client_credentials", "implicit"}, {}} {
		_, err := svc.Registry.Register(context.Background(), &RegistrationRequest{GrantTypes: gts})
		oe := requireOAuthError(t, err, CodeInvalidClientMetadata)
		assert.Equal(t, 400, oe.HTTPStatus())
	}
}

func TestRegister_RequiresCodeResponseType(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Registry.Register(context.Background(), &RegistrationRequest{ResponseTypes: []string{"token"}})
	requireOAuthError(t, err, CodeInvalidClientMetadata)

	resp, err := svc.Registry.Register(context.Background(), &RegistrationRequest{ResponseTypes: []string{"token", "code"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"token", "code"}, resp.ResponseTypes)
}

func TestRegister_NilRequest(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Registry.Register(context.Background(), nil)
	requireOAuthError(t, err, CodeInvalidRequest)
}

func TestRegister_KeepsRequestedScope(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Registry.Register(context.Background(), &RegistrationRequest{Scope: "drugs:read"})
	require.NoError(t, err)
	assert.Equal(t, "drugs:read", resp.Scope)
}
