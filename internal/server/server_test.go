package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/agentdrugs/internal/app"
	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/bobmcallan/agentdrugs/internal/oauth"
	"github.com/bobmcallan/agentdrugs/internal/storage/memory"
)

const (
	testRedirect = "http://localhost:9999/cb"
	testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

func newTestServer(t *testing.T, mutate ...func(*common.Config)) *Server {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.RateLimit.RequestsPerSecond = 0
	for _, m := range mutate {
		m(cfg)
	}
	logger := common.NewSilentLogger()
	mgr := memory.NewManager(logger)
	require.NoError(t, mgr.DrugStore().SaveDrug(context.Background(), &models.Drug{
		Name: "coach", Prompt: "Be encouraging.", DefaultDurationMinutes: 45,
	}))
	a := app.New(cfg, logger, mgr)
	t.Cleanup(a.Close)
	return NewServer(a)
}

func identityToken(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(common.NewDefaultConfig().Auth.IdentitySecret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, srv *Server, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, srv *Server, target string, v interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	h := map[string]string{"Content-Type": "application/json"}
	for k, val := range headers {
		h[k] = val
	}
	return do(t, srv, http.MethodPost, target, bytes.NewReader(raw), h)
}

func postForm(t *testing.T, srv *Server, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, http.MethodPost, target, strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

// registerClient registers a public client and returns its client_id.
func registerClient(t *testing.T, srv *Server) string {
	t.Helper()
	rec := postJSON(t, srv, "/register", map[string]interface{}{
		"client_name":   "Test Client",
		"redirect_uris": []string{testRedirect},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp oauth.RegistrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ClientID)
	return resp.ClientID
}

// issueToken walks callback and token exchange and returns the bearer token.
func issueToken(t *testing.T, srv *Server, userID string) string {
	t.Helper()
	clientID := registerClient(t, srv)

	rec := postJSON(t, srv, "/oauth/callback", oauth.CompletionRequest{
		ClientID:            clientID,
		RedirectURI:         testRedirect,
		State:               "abc",
		CodeChallenge:       oauth.S256Challenge(testVerifier),
		CodeChallengeMethod: oauth.MethodS256,
		AgentName:           "laptop",
	}, map[string]string{"Authorization": "Bearer " + identityToken(t, userID)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var completion oauth.CompletionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &completion))
	assert.Equal(t, "abc", completion.State)

	rec = postForm(t, srv, "/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {completion.AuthorizationCode},
		"redirect_uri":  {testRedirect},
		"client_id":     {clientID},
		"code_verifier": {testVerifier},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok oauth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok.AccessToken
}

func TestAuthorizationServerMetadata(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, oauth.PathMetadata, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var md oauth.ServerMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &md))
	assert.Equal(t, "http://localhost:8080", md.Issuer)
	assert.Equal(t, "http://localhost:8080/oauth/token", md.TokenEndpoint)
	assert.Equal(t, []string{"S256"}, md.CodeChallengeMethodsSupported)

	rec = do(t, srv, http.MethodPost, oauth.PathMetadata, nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProtectedResourceMetadata(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, pathProtectedResource, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "http://localhost:8080/mcp", body["resource"])
	assert.Equal(t, []interface{}{"http://localhost:8080"}, body["authorization_servers"])
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t)

	t.Run("defaults", func(t *testing.T) {
		rec := postJSON(t, srv, "/oauth/register", map[string]interface{}{
			"redirect_uris": []string{testRedirect},
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp oauth.RegistrationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []string{"authorization_code"}, resp.GrantTypes)
		assert.Equal(t, "none", resp.TokenEndpointAuthMethod)
	})

	t.Run("null body", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/register", strings.NewReader("null"),
			map[string]string{"Content-Type": "application/json"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, oauth.CodeInvalidRequest, decodeError(t, rec).Error)
	})

	t.Run("empty grant types", func(t *testing.T) {
		rec := postJSON(t, srv, "/register", map[string]interface{}{
			"redirect_uris": []string{testRedirect},
			"grant_types":   []string{},
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, oauth.CodeInvalidClientMetadata, decodeError(t, rec).Error)
	})
}

func TestAuthorize(t *testing.T) {
	srv := newTestServer(t)

	q := url.Values{
		"response_type":         {"code"},
		"client_id":             {"client-1"},
		"redirect_uri":          {testRedirect},
		"code_challenge":        {oauth.S256Challenge(testVerifier)},
		"code_challenge_method": {"S256"},
		"state":                 {"st"},
	}
	rec := do(t, srv, http.MethodGet, "/authorize?"+q.Encode(), nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/consent", loc.Path)
	assert.Equal(t, "true", loc.Query().Get("oauth"))
	assert.Equal(t, "client-1", loc.Query().Get("client_id"))
	assert.Equal(t, "st", loc.Query().Get("state"))

	q.Set("code_challenge_method", "plain")
	rec = do(t, srv, http.MethodGet, "/oauth/authorize?"+q.Encode(), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, oauth.CodeInvalidRequest, decodeError(t, rec).Error)
}

func TestCallback_RequiresIdentity(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/oauth/callback", oauth.CompletionRequest{ClientID: "c"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, oauth.CodeUnauthenticated, decodeError(t, rec).Error)

	rec = postJSON(t, srv, "/oauth/callback", oauth.CompletionRequest{ClientID: "c"},
		map[string]string{"Authorization": "Bearer not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateIdentityToken(t *testing.T) {
	secret := []byte("s3cret")

	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, key interface{}) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	sub, err := validateIdentityToken(sign(jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Minute).Unix()}, jwt.SigningMethodHS256, secret), secret)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)

	_, err = validateIdentityToken(sign(jwt.MapClaims{"sub": "u1"}, jwt.SigningMethodHS256, secret), secret)
	assert.Error(t, err, "exp is required")

	_, err = validateIdentityToken(sign(jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()}, jwt.SigningMethodHS256, secret), secret)
	assert.Error(t, err, "expired")

	_, err = validateIdentityToken(sign(jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Minute).Unix()}, jwt.SigningMethodHS256, []byte("other")), secret)
	assert.Error(t, err, "wrong key")

	_, err = validateIdentityToken(sign(jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}, jwt.SigningMethodHS256, secret), secret)
	assert.Error(t, err, "no subject")
}

func TestTokenExchange(t *testing.T) {
	srv := newTestServer(t)
	token := issueToken(t, srv, "user-1")
	assert.NotEmpty(t, token)

	t.Run("unsupported grant type", func(t *testing.T) {
		rec := postForm(t, srv, "/oauth/token", url.Values{"grant_type": {"client_credentials"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, oauth.CodeUnsupportedGrantType, decodeError(t, rec).Error)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("json body", func(t *testing.T) {
		rec := postJSON(t, srv, "/token", map[string]string{
			"grant_type":    "authorization_code",
			"code":          "nope",
			"redirect_uri":  testRedirect,
			"client_id":     "c",
			"code_verifier": testVerifier,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, oauth.CodeInvalidGrant, decodeError(t, rec).Error)
	})

	t.Run("missing parameters", func(t *testing.T) {
		rec := postForm(t, srv, "/token", url.Values{"grant_type": {"authorization_code"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, oauth.CodeInvalidRequest, decodeError(t, rec).Error)
	})
}

func TestMCP_RequiresBearer(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/mcp", strings.NewReader(`{}`), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	challenge := rec.Header().Get("WWW-Authenticate")
	assert.Contains(t, challenge, `resource_metadata="http://localhost:8080/.well-known/oauth-protected-resource"`)
	assert.NotContains(t, challenge, "error=")

	rec = do(t, srv, http.MethodPost, "/mcp", strings.NewReader(`{}`),
		map[string]string{"Authorization": "Bearer bogus"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
	assert.Equal(t, oauth.CodeInvalidToken, decodeError(t, rec).Error)
}

func TestMCP_ToolCallWithIssuedToken(t *testing.T) {
	srv := newTestServer(t)
	token := issueToken(t, srv, "user-1")

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"take_drug","arguments":{"name":"coach"}}}`
	rec := do(t, srv, http.MethodPost, "/mcp", strings.NewReader(body), map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
		"Accept":        "application/json, text/event-stream",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Successfully took coach!")

	agents, err := srv.app.OAuth.Agents.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, agents, 1)

	active, err := srv.app.Drugs.Active(context.Background(), agents[0].Identity())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "coach", active[0].Name)
}

func TestRevoke(t *testing.T) {
	srv := newTestServer(t)
	token := issueToken(t, srv, "user-1")

	rec := postForm(t, srv, "/revoke", url.Values{"token": {token}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	// Unknown tokens are not an error.
	rec = postForm(t, srv, "/oauth/revoke", url.Values{"token": {token}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postForm(t, srv, "/revoke", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/mcp", strings.NewReader(`{}`),
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAgentsAPI(t *testing.T) {
	srv := newTestServer(t)
	auth := map[string]string{"Authorization": "Bearer " + identityToken(t, "user-7")}

	rec := postJSON(t, srv, "/api/agents", map[string]string{"agentName": "ci runner"}, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ci runner", created["agentName"])
	assert.NotEmpty(t, created["bearerToken"])
	assert.NotEmpty(t, created["agentId"])

	rec = do(t, srv, http.MethodGet, "/api/agents", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ci runner")
	assert.NotContains(t, rec.Body.String(), created["bearerToken"])

	rec = do(t, srv, http.MethodGet, "/api/agents", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/agents", nil, auth)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodOptions, "/token", nil, map[string]string{"Origin": "https://example.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Location"))

	rec = do(t, srv, http.MethodGet, "/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	rec = do(t, srv, http.MethodGet, "/api/version", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, common.VersionInfo(), info)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	registerClient(t, srv)
	do(t, srv, http.MethodGet, "/health", nil, nil)

	rec := do(t, srv, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `agentdrugs_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, body, `agentdrugs_oauth_events_total{operation="register",outcome="ok"} 1`)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *common.Config) {
		c.RateLimit.RequestsPerSecond = 0.001
		c.RateLimit.Burst = 2
	})

	for i := 0; i < 2; i++ {
		rec := postForm(t, srv, "/token", url.Values{"grant_type": {"password"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := postForm(t, srv, "/token", url.Values{"grant_type": {"password"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Discovery is never limited.
	rec = do(t, srv, http.MethodGet, oauth.PathMetadata, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(common.NewSilentLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, oauth.CodeServerError, decodeError(t, rec).Error)
}
