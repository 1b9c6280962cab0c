package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/bobmcallan/agentdrugs/internal/oauth"
)

// handleCallback handles POST /oauth/callback: the consent surface reports
// an approved authorization and receives the code to hand to the client.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req oauth.CompletionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	res, err := s.app.OAuth.Authorizer.Complete(r.Context(), common.UserIDFromContext(r.Context()), &req)
	if err != nil {
		s.metrics.observeOAuth("callback", oauth.AsError(err).Code)
		s.writeOAuthError(w, r, err)
		return
	}

	s.metrics.observeOAuth("callback", "ok")
	WriteJSON(w, http.StatusOK, res)
}

// agentSummary is an agent as shown to its owner. The bearer token is omitted.
type agentSummary struct {
	AgentID    string    `json:"agentId"`
	Name       string    `json:"name"`
	ClientID   string    `json:"clientId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

func summarize(a *models.Agent) agentSummary {
	return agentSummary{
		AgentID:    a.AgentID,
		Name:       a.Name,
		ClientID:   a.ClientID,
		CreatedAt:  a.CreatedAt,
		LastUsedAt: a.LastUsedAt,
	}
}

// handleAgents handles GET (list own agents) and POST (create an agent) on /api/agents.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleAgentsList(w, r)
	case http.MethodPost:
		s.handleAgentsCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleAgentsList(w http.ResponseWriter, r *http.Request) {
	agents, err := s.app.OAuth.Agents.List(r.Context(), common.UserIDFromContext(r.Context()))
	if err != nil {
		s.writeOAuthError(w, r, err)
		return
	}

	out := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		out = append(out, summarize(a))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"agents": out})
}

func (s *Server) handleAgentsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentName string `json:"agentName"`
	}
	if r.ContentLength != 0 && !DecodeJSON(w, r, &req) {
		return
	}

	agent, err := s.app.OAuth.Agents.Create(r.Context(), common.UserIDFromContext(r.Context()), req.AgentName)
	if err != nil {
		s.writeOAuthError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"bearerToken": agent.BearerToken,
		"agentId":     agent.AgentID,
		"agentName":   agent.Name,
	})
}
