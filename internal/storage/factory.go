// Package storage selects and assembles the configured storage backends.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/storage/memory"
	"github.com/bobmcallan/agentdrugs/internal/storage/redisstate"
	"github.com/bobmcallan/agentdrugs/internal/storage/surrealdb"
)

// Backend names accepted in config.
const (
	BackendMemory    = "memory"
	BackendSurrealDB = "surrealdb"

	StateBackendStore = "store"
	StateBackendRedis = "redis"
)

// NewStorageManager creates the record store named by config.Storage and,
// when config.State selects Redis, moves active drug state there.
// The drug catalog from config is seeded into the result.
func NewStorageManager(ctx context.Context, config *common.Config, logger *common.Logger) (interfaces.StorageManager, error) {
	var base interfaces.StorageManager

	switch config.Storage.Backend {
	case BackendMemory, "":
		base = memory.NewManager(logger)
	case BackendSurrealDB:
		m, err := surrealdb.NewManager(ctx, logger, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create surrealdb storage: %w", err)
		}
		base = m
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, surrealdb)", config.Storage.Backend)
	}

	manager := base
	if config.State.Backend == StateBackendRedis {
		state, err := redisstate.New(ctx, config.State.Redis, logger)
		if err != nil {
			base.Close()
			return nil, fmt.Errorf("failed to create redis state store: %w", err)
		}
		manager = &stateOverride{StorageManager: base, state: state}
	}

	if err := SeedCatalog(ctx, manager.DrugStore(), config, logger); err != nil {
		manager.Close()
		return nil, err
	}

	return manager, nil
}

// SeedCatalog upserts every configured drug into the catalog.
func SeedCatalog(ctx context.Context, store interfaces.DrugStore, config *common.Config, logger *common.Logger) error {
	for i := range config.Drugs {
		drug := config.Drugs[i]
		if drug.Name == "" {
			logger.Warn().Int("index", i).Msg("Skipping catalog entry without a name")
			continue
		}
		if err := store.SaveDrug(ctx, &drug); err != nil {
			return fmt.Errorf("failed to seed drug %q: %w", drug.Name, err)
		}
	}
	if len(config.Drugs) > 0 {
		logger.Info().Int("count", len(config.Drugs)).Msg("Drug catalog seeded")
	}
	return nil
}

// stateOverride serves active drug sets from Redis and everything else from
// the underlying manager.
type stateOverride struct {
	interfaces.StorageManager
	state *redisstate.Store
}

func (m *stateOverride) ActiveDrugStore() interfaces.ActiveDrugStore {
	return m.state
}

func (m *stateOverride) Close() error {
	return errors.Join(m.state.Close(), m.StorageManager.Close())
}
