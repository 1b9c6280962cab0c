package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
)

// BearerValidator resolves bearer tokens to agent identities.
type BearerValidator struct {
	agents interfaces.AgentStore
	ttl    time.Duration
	logger *common.Logger

	Now func() time.Time
}

// NewBearerValidator creates a validator that rejects agents older than ttl.
func NewBearerValidator(agents interfaces.AgentStore, ttl time.Duration, logger *common.Logger) *BearerValidator {
	return &BearerValidator{agents: agents, ttl: ttl, logger: logger, Now: time.Now}
}

// Validate looks the token up on every call, so revocation is immediate.
// Expired agents are rejected but kept. lastUsedAt is refreshed best effort.
func (v *BearerValidator) Validate(ctx context.Context, token string) (*models.AgentIdentity, error) {
	if token == "" {
		return nil, errInvalidToken("Missing bearer token")
	}

	agent, err := v.agents.GetAgentByToken(ctx, token)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, errInvalidToken("Invalid bearer token")
		}
		return nil, errServer("failed to validate bearer token", err)
	}

	if agent.UserID == "" || agent.Name == "" {
		v.logger.Error().Str("agent_id", agent.AgentID).Msg("Agent record is missing user or name")
		return nil, errInvalidToken("Invalid agent data")
	}

	now := v.Now()
	if !agent.CreatedAt.IsZero() && now.Sub(agent.CreatedAt) > v.ttl {
		return nil, errInvalidToken("Bearer token has expired. Please re-authorize.")
	}

	if err := v.agents.TouchAgent(ctx, agent.AgentID, now); err != nil {
		v.logger.Warn().Err(err).Str("agent_id", agent.AgentID).Msg("Failed to update agent lastUsedAt")
	}

	return agent.Identity(), nil
}
