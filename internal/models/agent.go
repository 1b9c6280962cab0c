package models

import "time"

// Agent is a named credential owned by a user. Its bearer token is the
// sole credential presented by automated clients.
type Agent struct {
	AgentID     string    `json:"agent_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	BearerToken string    `json:"-"`
	ClientID    string    `json:"client_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// AgentIdentity is the resolved caller of an authenticated request.
type AgentIdentity struct {
	AgentID string `json:"agent_id"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
}

// Identity returns the identity view of the agent.
func (a *Agent) Identity() *AgentIdentity {
	return &AgentIdentity{AgentID: a.AgentID, UserID: a.UserID, Name: a.Name}
}
