package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bobmcallan/agentdrugs/internal/app"
	icommon "github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/bobmcallan/agentdrugs/internal/server"
	"github.com/bobmcallan/agentdrugs/internal/storage"
	"github.com/bobmcallan/agentdrugs/tests/common"
)

// Env is a running agentdrugs server backed by SurrealDB for records and
// Redis (miniredis) for active drug state.
type Env struct {
	t      *testing.T
	ctx    context.Context
	cancel context.CancelFunc
	app    *app.App
	http   *httptest.Server
	Redis  *miniredis.Miniredis
	Config *icommon.Config
}

// NewEnv starts the server. Skipped unless SurrealDB container tests are enabled.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	sc := common.StartSurrealDB(t)
	mr := miniredis.RunT(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)

	cfg := icommon.NewDefaultConfig()
	cfg.Storage.Backend = storage.BackendSurrealDB
	cfg.Storage.Address = sc.Address()
	cfg.Storage.Database = fmt.Sprintf("test_%d", time.Now().UnixNano())
	cfg.State.Backend = storage.StateBackendRedis
	cfg.State.Redis.Address = mr.Addr()
	cfg.RateLimit.RequestsPerSecond = 0
	cfg.Drugs = []models.Drug{
		{Name: "zen master", Prompt: "Respond with calm clarity.", DefaultDurationMinutes: 60},
		{Name: "skeptic", Prompt: "Question every assumption.", DefaultDurationMinutes: 30},
	}

	logger := icommon.NewSilentLogger()
	mgr, err := storage.NewStorageManager(ctx, cfg, logger)
	if err != nil {
		cancel()
		t.Fatalf("Failed to create storage: %v", err)
	}

	a := app.New(cfg, logger, mgr)
	ts := httptest.NewUnstartedServer(nil)
	cfg.Server.PublicURL = "http://" + ts.Listener.Addr().String()
	ts.Config.Handler = server.NewServer(a).Handler()
	ts.Start()

	env := &Env{t: t, ctx: ctx, cancel: cancel, app: a, http: ts, Redis: mr, Config: cfg}
	t.Cleanup(env.Cleanup)
	return env
}

// Cleanup stops the server and releases storage.
func (e *Env) Cleanup() {
	if e == nil {
		return
	}
	e.http.Close()
	e.app.Close()
	e.cancel()
}

// Context returns the test context.
func (e *Env) Context() context.Context {
	return e.ctx
}

// URL returns the server base URL.
func (e *Env) URL() string {
	return e.http.URL
}

// Client returns an HTTP client that does not follow redirects.
func (e *Env) Client() *http.Client {
	c := e.http.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

// IdentityToken signs an end-user identity token for userID.
func (e *Env) IdentityToken(userID string) string {
	e.t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(e.Config.Auth.IdentitySecret))
	if err != nil {
		e.t.Fatalf("sign identity token: %v", err)
	}
	return signed
}

// HTTPPost posts data as JSON with an optional bearer token.
func (e *Env) HTTPPost(path string, data interface{}, bearer string) (*http.Response, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return e.do(http.MethodPost, path, "application/json", bytes.NewReader(raw), bearer)
}

// HTTPPostForm posts a url-encoded form body.
func (e *Env) HTTPPostForm(path, form string) (*http.Response, error) {
	return e.do(http.MethodPost, path, "application/x-www-form-urlencoded", bytes.NewBufferString(form), "")
}

// HTTPGet issues a GET.
func (e *Env) HTTPGet(path string) (*http.Response, error) {
	return e.do(http.MethodGet, path, "", nil, "")
}

func (e *Env) do(method, path, contentType string, body io.Reader, bearer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(e.ctx, method, e.URL()+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return e.Client().Do(req)
}

// MCPRequest sends one JSON-RPC request to /mcp with the agent token and
// returns the result member.
func (e *Env) MCPRequest(token, method string, params interface{}) (json.RawMessage, error) {
	resp, err := e.HTTPPost("/mcp", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mcp returned %d: %s", resp.StatusCode, string(body))
	}

	var rpc struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &rpc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpc.Error != nil {
		return nil, fmt.Errorf("rpc error: %s", rpc.Error.Message)
	}
	return rpc.Result, nil
}

// MCPToolText calls a tool and returns its first text content and error flag.
func (e *Env) MCPToolText(token, tool string, args map[string]interface{}) (string, bool, error) {
	raw, err := e.MCPRequest(token, "tools/call", map[string]interface{}{
		"name":      tool,
		"arguments": args,
	})
	if err != nil {
		return "", false, err
	}
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", false, fmt.Errorf("decode tool result: %w", err)
	}
	if len(result.Content) == 0 {
		return "", result.IsError, fmt.Errorf("tool result has no content")
	}
	return result.Content[0].Text, result.IsError, nil
}
