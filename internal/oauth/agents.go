package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/credentials"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/google/uuid"
)

// DefaultAgentName names agents created outside an authorization flow.
const DefaultAgentName = "Default Agent"

// Agents creates and lists agent credentials on behalf of an end user.
type Agents struct {
	store  interfaces.AgentStore
	creds  *credentials.Generator
	logger *common.Logger

	Now func() time.Time
}

// NewAgents creates an Agents service backed by store.
func NewAgents(store interfaces.AgentStore, creds *credentials.Generator, logger *common.Logger) *Agents {
	return &Agents{store: store, creds: creds, logger: logger, Now: time.Now}
}

// Create mints a new agent for userID. The returned agent carries its
// bearer token; it is the only time the caller sees it outside a token
// exchange.
func (a *Agents) Create(ctx context.Context, userID, name string) (*models.Agent, error) {
	if userID == "" {
		return nil, errUnauthenticated("User must be authenticated to generate bearer token")
	}
	if name == "" {
		name = DefaultAgentName
	}
	agent, err := a.mint(ctx, userID, name, "")
	if err != nil {
		return nil, errServer("failed to create agent", err)
	}
	return agent, nil
}

// List returns the user's agents, oldest first.
func (a *Agents) List(ctx context.Context, userID string) ([]*models.Agent, error) {
	if userID == "" {
		return nil, errUnauthenticated("User must be authenticated to list agents")
	}
	agents, err := a.store.ListAgents(ctx, userID)
	if err != nil {
		return nil, errServer("failed to list agents", err)
	}
	return agents, nil
}

// owned loads agentID and checks it belongs to userID.
func (a *Agents) owned(ctx context.Context, userID, agentID string) (*models.Agent, error) {
	agent, err := a.store.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, errNotFound("Specified agent not found")
		}
		return nil, errServer("failed to load agent", err)
	}
	if agent.UserID != userID {
		return nil, errPermissionDenied("You do not have permission to use this agent")
	}
	return agent, nil
}

func (a *Agents) mint(ctx context.Context, userID, name, clientID string) (*models.Agent, error) {
	token, err := a.creds.BearerToken()
	if err != nil {
		return nil, err
	}
	now := a.Now()
	agent := &models.Agent{
		AgentID:     uuid.New().String(),
		UserID:      userID,
		Name:        name,
		BearerToken: token,
		ClientID:    clientID,
		CreatedAt:   now,
		LastUsedAt:  now,
	}
	if err := a.store.SaveAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to save agent: %w", err)
	}

	a.logger.Info().
		Str("agent_id", agent.AgentID).
		Str("user_id", userID).
		Str("client_id", clientID).
		Msg("Agent created")
	return agent, nil
}
