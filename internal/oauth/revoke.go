package oauth

import (
	"context"
	"errors"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
)

// Revoker implements token revocation (RFC 7009).
type Revoker struct {
	agents interfaces.AgentStore
	logger *common.Logger
}

// NewRevoker creates a Revoker backed by agents.
func NewRevoker(agents interfaces.AgentStore, logger *common.Logger) *Revoker {
	return &Revoker{agents: agents, logger: logger}
}

// Revoke deletes the agent holding token. Unknown tokens succeed.
func (r *Revoker) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return errInvalidRequest("Missing token parameter")
	}

	agent, err := r.agents.GetAgentByToken(ctx, token)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			r.logger.Debug().Msg("Revocation requested for unknown token")
			return nil
		}
		return errUnavailable(err)
	}

	if err := r.agents.DeleteAgent(ctx, agent.AgentID); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return errUnavailable(err)
	}

	r.logger.Info().Str("agent_id", agent.AgentID).Msg("Bearer token revoked")
	return nil
}
