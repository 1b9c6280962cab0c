package server

import (
	"net/http"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/oauth"
)

const pathProtectedResource = "/.well-known/oauth-protected-resource"

// registerRoutes sets up every route on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	route := func(pattern string, h http.Handler) {
		mux.Handle(pattern, s.metrics.instrument(pattern, h))
	}

	// Discovery
	route(oauth.PathMetadata, http.HandlerFunc(s.handleAuthorizationServerMetadata))
	route(pathProtectedResource, http.HandlerFunc(s.handleProtectedResourceMetadata))

	// OAuth endpoints, served at both the root and under /oauth
	register := s.rateLimit(http.HandlerFunc(s.handleRegister))
	token := s.rateLimit(http.HandlerFunc(s.handleToken))
	revoke := s.rateLimit(http.HandlerFunc(s.handleRevoke))
	authorize := http.HandlerFunc(s.handleAuthorize)

	route(oauth.PathRegister, register)
	route(oauth.PathRegisterAlt, register)
	route(oauth.PathAuthorize, authorize)
	route(oauth.PathAuthorizeAlt, authorize)
	route(oauth.PathToken, token)
	route(oauth.PathTokenAlt, token)
	route(oauth.PathRevoke, revoke)
	route(oauth.PathRevokeAlt, revoke)

	// Consent surface (end-user identity)
	route(oauth.PathCallback, s.requireUser(http.HandlerFunc(s.handleCallback)))
	route("/api/agents", s.requireUser(http.HandlerFunc(s.handleAgents)))

	// MCP (agent bearer token)
	route("/mcp", s.requireAgent(s.mcpHandler()))

	// System
	route("/health", http.HandlerFunc(s.handleHealth))
	route("/api/health", http.HandlerFunc(s.handleHealth))
	route("/api/version", http.HandlerFunc(s.handleVersion))
	route("/metrics", s.metrics.Handler())
	route("/", http.HandlerFunc(s.handleRoot))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.VersionInfo())
}

// handleRoot sends browsers to the website; anything else under / is 404.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "not_found", "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	http.Redirect(w, r, s.app.Config.Server.WebsiteURL, http.StatusFound)
}
