// Package interfaces defines storage contracts for agentdrugs
package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/models"
)

// ErrNotFound is returned (wrapped) by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// StorageManager coordinates all storage backends
type StorageManager interface {
	OAuthStore() OAuthStore
	AgentStore() AgentStore
	DrugStore() DrugStore
	ActiveDrugStore() ActiveDrugStore

	// Lifecycle
	Close() error
}

// OAuthStore manages registered clients and authorization codes.
type OAuthStore interface {
	// Clients
	SaveClient(ctx context.Context, client *models.OAuthClient) error
	GetClient(ctx context.Context, clientID string) (*models.OAuthClient, error)

	// Authorization codes
	SaveCode(ctx context.Context, code *models.OAuthCode) error
	GetCode(ctx context.Context, code string) (*models.OAuthCode, error)
	// MarkCodeUsed flips used from false to true. It reports false when the
	// code was already used (or is gone), so only one caller can ever win.
	MarkCodeUsed(ctx context.Context, code string) (bool, error)
	DeleteCode(ctx context.Context, code string) error
	PurgeExpiredCodes(ctx context.Context, now time.Time) (int, error)
}

// AgentStore manages agent credentials. Deleting an agent revokes its bearer token.
type AgentStore interface {
	SaveAgent(ctx context.Context, agent *models.Agent) error
	GetAgent(ctx context.Context, agentID string) (*models.Agent, error)
	GetAgentByToken(ctx context.Context, bearerToken string) (*models.Agent, error)
	ListAgents(ctx context.Context, userID string) ([]*models.Agent, error)
	TouchAgent(ctx context.Context, agentID string, lastUsedAt time.Time) error
	DeleteAgent(ctx context.Context, agentID string) error
}

// DrugStore holds the read-mostly drug catalog and the usage audit trail.
type DrugStore interface {
	ListDrugs(ctx context.Context) ([]*models.Drug, error)
	GetDrug(ctx context.Context, name string) (*models.Drug, error)
	SaveDrug(ctx context.Context, drug *models.Drug) error
	RecordUsage(ctx context.Context, event *models.UsageEvent) error
}

// ActiveDrugStore is the per-agent set of time-limited entries, keyed by
// (userID, agentID) and unique by entry name. Add and Clear are atomic
// with respect to each other for the same key.
type ActiveDrugStore interface {
	// Add inserts entry, replacing any existing entry with the same name.
	Add(ctx context.Context, userID, agentID string, entry models.ActiveDrug) error
	// List returns unexpired entries. Expired entries are pruned from storage
	// with a single write, and only when something expired.
	List(ctx context.Context, userID, agentID string) ([]models.ActiveDrug, error)
	// Clear empties the set. Clearing an empty or missing set succeeds.
	Clear(ctx context.Context, userID, agentID string) error
}
