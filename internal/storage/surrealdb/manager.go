package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// tables lists every table the stores touch. SurrealDB v3 errors when
// querying a table that was never defined.
var tables = []string{"oauth_client", "oauth_code", "agent", "drug", "drug_usage", "active_drugs"}

var indexes = []string{
	"DEFINE INDEX IF NOT EXISTS agent_bearer_token ON TABLE agent FIELDS bearer_token UNIQUE",
	"DEFINE INDEX IF NOT EXISTS agent_user ON TABLE agent FIELDS user_id",
	"DEFINE INDEX IF NOT EXISTS oauth_code_expiry ON TABLE oauth_code FIELDS expires_at",
}

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	oauthStore      *OAuthStore
	agentStore      *AgentStore
	drugStore       *DrugStore
	activeDrugStore *ActiveDrugStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(ctx context.Context, logger *common.Logger, config *common.Config) (*Manager, error) {
	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	if err := defineSchema(ctx, db); err != nil {
		db.Close(ctx)
		return nil, err
	}

	m := newManager(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func newManager(db *surrealdb.DB, logger *common.Logger) *Manager {
	return &Manager{
		db:              db,
		logger:          logger,
		oauthStore:      NewOAuthStore(db, logger),
		agentStore:      NewAgentStore(db, logger),
		drugStore:       NewDrugStore(db, logger),
		activeDrugStore: NewActiveDrugStore(db, logger),
	}
}

// defineSchema creates tables and indexes if they do not exist yet.
func defineSchema(ctx context.Context, db *surrealdb.DB) error {
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}
	for _, sql := range indexes {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to define index: %w", err)
		}
	}
	return nil
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
	m.db.Close(context.Background())
	return nil
}

// isNotFoundError reports whether a SurrealDB error means the record is absent.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// isRetryableError reports whether a transaction failed on a write conflict.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "can be retried") || strings.Contains(msg, "transaction conflict")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
