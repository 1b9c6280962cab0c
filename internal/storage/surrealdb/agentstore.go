package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// agentRow is the DB-level representation of an agent credential.
type agentRow struct {
	AgentID     string    `json:"agent_id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	BearerToken string    `json:"bearer_token"`
	ClientID    string    `json:"client_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

func (r agentRow) toModel() *models.Agent {
	return &models.Agent{
		AgentID:     r.AgentID,
		UserID:      r.UserID,
		Name:        r.Name,
		BearerToken: r.BearerToken,
		ClientID:    r.ClientID,
		CreatedAt:   r.CreatedAt,
		LastUsedAt:  r.LastUsedAt,
	}
}

const agentFields = "agent_id, user_id, name, bearer_token, client_id, created_at, last_used_at"

// AgentStore implements interfaces.AgentStore using SurrealDB.
// The bearer_token column carries a UNIQUE index.
type AgentStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewAgentStore creates a new AgentStore.
func NewAgentStore(db *surrealdb.DB, logger *common.Logger) *AgentStore {
	return &AgentStore{db: db, logger: logger}
}

func (s *AgentStore) SaveAgent(ctx context.Context, agent *models.Agent) error {
	sql := `UPSERT $rid SET
		agent_id = $agent_id, user_id = $user_id, name = $name,
		bearer_token = $bearer_token, client_id = $client_id,
		created_at = $created_at, last_used_at = $last_used_at`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("agent", agent.AgentID),
		"agent_id":     agent.AgentID,
		"user_id":      agent.UserID,
		"name":         agent.Name,
		"bearer_token": agent.BearerToken,
		"client_id":    agent.ClientID,
		"created_at":   agent.CreatedAt,
		"last_used_at": agent.LastUsedAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

func (s *AgentStore) GetAgent(ctx context.Context, agentID string) (*models.Agent, error) {
	sql := "SELECT " + agentFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("agent", agentID),
	}
	return s.queryOne(ctx, sql, vars)
}

func (s *AgentStore) GetAgentByToken(ctx context.Context, bearerToken string) (*models.Agent, error) {
	sql := "SELECT " + agentFields + " FROM agent WHERE bearer_token = $token LIMIT 1"
	vars := map[string]any{"token": bearerToken}
	return s.queryOne(ctx, sql, vars)
}

func (s *AgentStore) queryOne(ctx context.Context, sql string, vars map[string]any) (*models.Agent, error) {
	results, err := surrealdb.Query[[]agentRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("agent: %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("agent: %w", interfaces.ErrNotFound)
	}
	return (*results)[0].Result[0].toModel(), nil
}

func (s *AgentStore) ListAgents(ctx context.Context, userID string) ([]*models.Agent, error) {
	sql := "SELECT " + agentFields + " FROM agent WHERE user_id = $user_id ORDER BY created_at ASC"
	vars := map[string]any{"user_id": userID}
	results, err := surrealdb.Query[[]agentRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	var agents []*models.Agent
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			agents = append(agents, row.toModel())
		}
	}
	return agents, nil
}

func (s *AgentStore) TouchAgent(ctx context.Context, agentID string, lastUsedAt time.Time) error {
	sql := "UPDATE $rid SET last_used_at = $last_used_at RETURN AFTER"
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("agent", agentID),
		"last_used_at": lastUsedAt,
	}
	results, err := surrealdb.Query[[]agentRow](ctx, s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to update agent last_used_at: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("agent %s: %w", agentID, interfaces.ErrNotFound)
	}
	return nil
}

func (s *AgentStore) DeleteAgent(ctx context.Context, agentID string) error {
	rid := surrealmodels.NewRecordID("agent", agentID)
	_, err := surrealdb.Delete[agentRow](ctx, s.db, rid)
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.AgentStore = (*AgentStore)(nil)
