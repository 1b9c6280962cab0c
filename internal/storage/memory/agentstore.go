package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
)

// AgentStore implements interfaces.AgentStore in memory with a token index.
type AgentStore struct {
	mu      sync.RWMutex
	agents  map[string]models.Agent
	byToken map[string]string // bearer token -> agent id
}

// NewAgentStore creates an empty AgentStore.
func NewAgentStore() *AgentStore {
	return &AgentStore{
		agents:  make(map[string]models.Agent),
		byToken: make(map[string]string),
	}
}

func (s *AgentStore) SaveAgent(_ context.Context, agent *models.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byToken[agent.BearerToken]; ok && owner != agent.AgentID {
		return fmt.Errorf("bearer token already assigned to another agent")
	}
	if prev, ok := s.agents[agent.AgentID]; ok && prev.BearerToken != agent.BearerToken {
		delete(s.byToken, prev.BearerToken)
	}
	s.agents[agent.AgentID] = *agent
	s.byToken[agent.BearerToken] = agent.AgentID
	return nil
}

func (s *AgentStore) GetAgent(_ context.Context, agentID string) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", agentID, interfaces.ErrNotFound)
	}
	return &a, nil
}

func (s *AgentStore) GetAgentByToken(_ context.Context, bearerToken string) (*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[bearerToken]
	if !ok {
		return nil, fmt.Errorf("agent by token: %w", interfaces.ErrNotFound)
	}
	a := s.agents[id]
	return &a, nil
}

func (s *AgentStore) ListAgents(_ context.Context, userID string) ([]*models.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Agent
	for _, a := range s.agents {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *AgentStore) TouchAgent(_ context.Context, agentID string, lastUsedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return fmt.Errorf("agent %s: %w", agentID, interfaces.ErrNotFound)
	}
	a.LastUsedAt = lastUsedAt
	s.agents[agentID] = a
	return nil
}

func (s *AgentStore) DeleteAgent(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.agents[agentID]; ok {
		delete(s.byToken, a.BearerToken)
		delete(s.agents, agentID)
	}
	return nil
}

// Compile-time check
var _ interfaces.AgentStore = (*AgentStore)(nil)
