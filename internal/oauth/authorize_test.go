package oauth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAuthorizationRequest() AuthorizationRequest {
	return AuthorizationRequest{
		ClientID:            "client_abc",
		RedirectURI:         "http://localhost:9999/cb",
		ResponseType:        "code",
		State:               "st",
		CodeChallenge:       S256Challenge(testVerifier),
		CodeChallengeMethod: "S256",
	}
}

func TestValidateAuthorizationRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AuthorizationRequest)
		ok     bool
	}{
		{"valid", func(*AuthorizationRequest) {}, true},
		{"no state is fine", func(r *AuthorizationRequest) { r.State = "" }, true},
		{"missing client_id", func(r *AuthorizationRequest) { r.ClientID = "" }, false},
		{"missing redirect_uri", func(r *AuthorizationRequest) { r.RedirectURI = "" }, false},
		{"token response type", func(r *AuthorizationRequest) { r.ResponseType = "token" }, false},
		{"missing challenge", func(r *AuthorizationRequest) { r.CodeChallenge = "" }, false},
		{"plain method", func(r *AuthorizationRequest) { r.CodeChallengeMethod = "plain" }, false},
		{"missing method", func(r *AuthorizationRequest) { r.CodeChallengeMethod = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validAuthorizationRequest()
			tt.mutate(&req)
			err := ValidateAuthorizationRequest(req)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			requireOAuthError(t, err, CodeInvalidRequest)
		})
	}
}

func TestAuthorizationRequest_ConsentRedirect(t *testing.T) {
	req := validAuthorizationRequest()
	q := url.Values{}
	q.Set("client_id", req.ClientID)
	parsed := AuthorizationRequestFromQuery(q)
	assert.Equal(t, req.ClientID, parsed.ClientID)

	target, err := req.ConsentRedirect("https://example.com/consent?theme=dark")
	require.NoError(t, err)

	u, err := url.Parse(target)
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Host)
	assert.Equal(t, "/consent", u.Path)
	got := u.Query()
	assert.Equal(t, "true", got.Get("oauth"))
	assert.Equal(t, "dark", got.Get("theme"))
	assert.Equal(t, req.ClientID, got.Get("client_id"))
	assert.Equal(t, req.RedirectURI, got.Get("redirect_uri"))
	assert.Equal(t, req.CodeChallenge, got.Get("code_challenge"))
	assert.Equal(t, "S256", got.Get("code_challenge_method"))
	assert.Equal(t, "st", got.Get("state"))
	assert.False(t, got.Has("scope"))
}
