package server

import (
	"net/http"

	"github.com/bobmcallan/agentdrugs/internal/oauth"
)

// --- Well-Known Metadata Endpoints ---

// handleAuthorizationServerMetadata handles GET /.well-known/oauth-authorization-server (RFC 8414).
func (s *Server) handleAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, oauth.Metadata(s.app.Config.Issuer()))
}

// handleProtectedResourceMetadata handles GET /.well-known/oauth-protected-resource (RFC 9728).
func (s *Server) handleProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	issuer := s.app.Config.Issuer()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"resource":                 issuer + "/mcp",
		"authorization_servers":    []string{issuer},
		"bearer_methods_supported": []string{"header"},
		"scopes_supported":         []string{"drugs:read", "drugs:write"},
	})
}

// --- Dynamic Client Registration (RFC 7591) ---

// handleRegister handles POST /register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req oauth.RegistrationRequest
	if !DecodeJSON(w, r, &req) {
		s.metrics.observeOAuth("register", oauth.CodeInvalidRequest)
		return
	}

	resp, err := s.app.OAuth.Registry.Register(r.Context(), &req)
	if err != nil {
		s.metrics.observeOAuth("register", oauth.AsError(err).Code)
		s.writeOAuthError(w, r, err)
		return
	}

	s.metrics.observeOAuth("register", "ok")
	WriteJSON(w, http.StatusCreated, resp)
}

// --- Authorization Endpoint ---

// handleAuthorize handles GET /authorize. Valid requests are redirected to
// the consent surface, which authenticates the user and posts back to
// /oauth/callback.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	req := oauth.AuthorizationRequestFromQuery(r.URL.Query())
	if err := oauth.ValidateAuthorizationRequest(req); err != nil {
		s.metrics.observeOAuth("authorize", oauth.AsError(err).Code)
		s.writeOAuthError(w, r, err)
		return
	}

	target, err := req.ConsentRedirect(s.app.Config.Auth.ConsentURL)
	if err != nil {
		s.writeOAuthError(w, r, err)
		return
	}

	s.metrics.observeOAuth("authorize", "ok")
	http.Redirect(w, r, target, http.StatusFound)
}

// --- Token Endpoint ---

// handleToken handles POST /token with a form or JSON body.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	params, ok := DecodeParams(w, r, "grant_type", "code", "redirect_uri", "client_id", "code_verifier")
	if !ok {
		s.metrics.observeOAuth("token", oauth.CodeInvalidRequest)
		return
	}

	resp, err := s.app.OAuth.Exchanger.Exchange(r.Context(), &oauth.TokenRequest{
		GrantType:    params["grant_type"],
		Code:         params["code"],
		RedirectURI:  params["redirect_uri"],
		ClientID:     params["client_id"],
		CodeVerifier: params["code_verifier"],
	})
	if err != nil {
		s.metrics.observeOAuth("token", oauth.AsError(err).Code)
		s.writeOAuthError(w, r, err)
		return
	}

	s.metrics.observeOAuth("token", "ok")
	WriteJSON(w, http.StatusOK, resp)
}

// --- Revocation Endpoint (RFC 7009) ---

// handleRevoke handles POST /revoke. Unknown tokens still get 200.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	params, ok := DecodeParams(w, r, "token")
	if !ok {
		s.metrics.observeOAuth("revoke", oauth.CodeInvalidRequest)
		return
	}

	if err := s.app.OAuth.Revoker.Revoke(r.Context(), params["token"]); err != nil {
		s.metrics.observeOAuth("revoke", oauth.AsError(err).Code)
		s.writeOAuthError(w, r, err)
		return
	}

	s.metrics.observeOAuth("revoke", "ok")
	w.WriteHeader(http.StatusOK)
}
