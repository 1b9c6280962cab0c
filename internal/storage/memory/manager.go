// Package memory provides process-local implementations of every store.
// It backs single-instance deployments and the handler/service tests.
package memory

import (
	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
)

// Manager implements interfaces.StorageManager in memory.
type Manager struct {
	logger *common.Logger

	oauthStore      *OAuthStore
	agentStore      *AgentStore
	drugStore       *DrugStore
	activeDrugStore *ActiveDrugStore
}

// NewManager creates an empty in-memory StorageManager.
func NewManager(logger *common.Logger) *Manager {
	m := &Manager{
		logger:          logger,
		oauthStore:      NewOAuthStore(),
		agentStore:      NewAgentStore(),
		drugStore:       NewDrugStore(),
		activeDrugStore: NewActiveDrugStore(),
	}
	logger.Info().Msg("In-memory storage manager initialized")
	return m
}

func (m *Manager) OAuthStore() interfaces.OAuthStore {
	return m.oauthStore
}

func (m *Manager) AgentStore() interfaces.AgentStore {
	return m.agentStore
}

func (m *Manager) DrugStore() interfaces.DrugStore {
	return m.drugStore
}

func (m *Manager) ActiveDrugStore() interfaces.ActiveDrugStore {
	return m.activeDrugStore
}

func (m *Manager) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
