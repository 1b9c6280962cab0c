package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/credentials"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
)

// CompletionRequest is posted by the consent surface once the user approves.
type CompletionRequest struct {
	ClientID            string `json:"clientId"`
	RedirectURI         string `json:"redirectUri"`
	Scope               string `json:"scope,omitempty"`
	State               string `json:"state,omitempty"`
	CodeChallenge       string `json:"codeChallenge"`
	CodeChallengeMethod string `json:"codeChallengeMethod"`
	AgentName           string `json:"agentName,omitempty"`
	ExistingAgentID     string `json:"existingAgentId,omitempty"`
}

// CompletionResult tells the consent surface where to send the user.
type CompletionResult struct {
	AuthorizationCode string `json:"authorizationCode"`
	RedirectURI       string `json:"redirectUri"`
	State             string `json:"state,omitempty"`
}

// Authorizer finishes an approved authorization: it binds an agent (new or
// reused) to a fresh single-use code.
type Authorizer struct {
	agents     *Agents
	codes      interfaces.OAuthStore
	creds      *credentials.Generator
	logger     *common.Logger
	codeExpiry time.Duration

	Now func() time.Time
}

// NewAuthorizer creates an Authorizer. Codes live for codeExpiry.
func NewAuthorizer(agents *Agents, codes interfaces.OAuthStore, creds *credentials.Generator, codeExpiry time.Duration, logger *common.Logger) *Authorizer {
	return &Authorizer{
		agents:     agents,
		codes:      codes,
		creds:      creds,
		logger:     logger,
		codeExpiry: codeExpiry,
		Now:        time.Now,
	}
}

// Complete mints an authorization code for userID. With ExistingAgentID the
// agent must exist and belong to userID, and its token is reused.
func (a *Authorizer) Complete(ctx context.Context, userID string, req *CompletionRequest) (*CompletionResult, error) {
	if userID == "" {
		return nil, errUnauthenticated("User must be authenticated to authorize OAuth")
	}
	if req.ClientID == "" || req.RedirectURI == "" {
		return nil, errInvalidArgument("clientId and redirectUri are required")
	}
	if req.CodeChallengeMethod != MethodS256 {
		return nil, errInvalidArgument("Only S256 code_challenge_method is supported")
	}
	if req.CodeChallenge == "" {
		return nil, errInvalidArgument("code_challenge is required")
	}

	var agent *models.Agent
	if req.ExistingAgentID != "" {
		existing, err := a.agents.owned(ctx, userID, req.ExistingAgentID)
		if err != nil {
			return nil, err
		}
		if err := a.agents.store.TouchAgent(ctx, existing.AgentID, a.Now()); err != nil {
			return nil, errServer("failed to update agent", err)
		}
		agent = existing
	} else {
		name := req.AgentName
		if name == "" {
			name = fmt.Sprintf("%s Agent", req.ClientID)
		}
		minted, err := a.agents.mint(ctx, userID, name, req.ClientID)
		if err != nil {
			return nil, errServer("failed to create agent", err)
		}
		agent = minted
	}

	code, err := a.creds.AuthorizationCode()
	if err != nil {
		return nil, errServer("failed to generate authorization code", err)
	}

	scope := req.Scope
	if scope == "" {
		scope = DefaultScope
	}
	now := a.Now()
	record := &models.OAuthCode{
		Code:                code,
		UserID:              userID,
		AgentID:             agent.AgentID,
		BearerToken:         agent.BearerToken,
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		Scope:               scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		Used:                false,
		CreatedAt:           now,
		ExpiresAt:           now.Add(a.codeExpiry),
	}
	if err := a.codes.SaveCode(ctx, record); err != nil {
		return nil, errServer("failed to store authorization code", err)
	}

	a.logger.Info().
		Str("client_id", req.ClientID).
		Str("agent_id", agent.AgentID).
		Bool("reused_agent", req.ExistingAgentID != "").
		Msg("Authorization code issued")

	return &CompletionResult{
		AuthorizationCode: code,
		RedirectURI:       req.RedirectURI,
		State:             req.State,
	}, nil
}
