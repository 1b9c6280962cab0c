package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type activeDrugRow struct {
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	ExpiresAt time.Time `json:"expires_at"`
}

type activeDrugSetRow struct {
	Drugs []activeDrugRow `json:"drugs"`
}

// ActiveDrugStore implements interfaces.ActiveDrugStore using one SurrealDB
// record per (user, agent). Mutations run inside a transaction and are
// retried on write conflicts.
type ActiveDrugStore struct {
	db         *surrealdb.DB
	logger     *common.Logger
	maxRetries uint
}

// NewActiveDrugStore creates a new ActiveDrugStore.
func NewActiveDrugStore(db *surrealdb.DB, logger *common.Logger) *ActiveDrugStore {
	return &ActiveDrugStore{db: db, logger: logger, maxRetries: 5}
}

func activeDrugsRID(userID, agentID string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID("active_drugs", userID+"|"+agentID)
}

func (s *ActiveDrugStore) Add(ctx context.Context, userID, agentID string, entry models.ActiveDrug) error {
	sql := `BEGIN TRANSACTION;
		UPSERT $rid SET
			user_id = $user_id, agent_id = $agent_id,
			drugs = array::append((drugs ?? [])[WHERE name != $name], $entry),
			updated_at = $now;
		COMMIT TRANSACTION;`
	vars := map[string]any{
		"rid":      activeDrugsRID(userID, agentID),
		"user_id":  userID,
		"agent_id": agentID,
		"name":     entry.Name,
		"entry": map[string]any{
			"name":       entry.Name,
			"prompt":     entry.Prompt,
			"expires_at": entry.ExpiresAt,
		},
		"now": time.Now(),
	}
	if err := s.exec(ctx, sql, vars); err != nil {
		return fmt.Errorf("failed to add active drug: %w", err)
	}
	return nil
}

func (s *ActiveDrugStore) List(ctx context.Context, userID, agentID string) ([]models.ActiveDrug, error) {
	sql := "SELECT drugs FROM $rid"
	vars := map[string]any{"rid": activeDrugsRID(userID, agentID)}
	results, err := surrealdb.Query[[]activeDrugSetRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return []models.ActiveDrug{}, nil
		}
		return nil, fmt.Errorf("failed to list active drugs: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return []models.ActiveDrug{}, nil
	}

	rows := (*results)[0].Result[0].Drugs
	stored := make([]models.ActiveDrug, 0, len(rows))
	for _, r := range rows {
		stored = append(stored, models.ActiveDrug{Name: r.Name, Prompt: r.Prompt, ExpiresAt: r.ExpiresAt})
	}

	now := time.Now()
	active := models.FilterActive(stored, now)
	if len(active) < len(stored) {
		// Prune server-side with the same predicate so a concurrent Add is not lost.
		prune := "UPDATE $rid SET drugs = drugs[WHERE expires_at > $now], updated_at = $now"
		if err := s.exec(ctx, prune, map[string]any{"rid": vars["rid"], "now": now}); err != nil {
			s.logger.Warn().Err(err).
				Str("agent_id", agentID).
				Msg("Failed to prune expired active drugs")
		}
	}
	return active, nil
}

func (s *ActiveDrugStore) Clear(ctx context.Context, userID, agentID string) error {
	sql := `BEGIN TRANSACTION;
		UPSERT $rid SET user_id = $user_id, agent_id = $agent_id, drugs = [], updated_at = $now;
		COMMIT TRANSACTION;`
	vars := map[string]any{
		"rid":      activeDrugsRID(userID, agentID),
		"user_id":  userID,
		"agent_id": agentID,
		"now":      time.Now(),
	}
	if err := s.exec(ctx, sql, vars); err != nil {
		return fmt.Errorf("failed to clear active drugs: %w", err)
	}
	return nil
}

// exec runs a write, retrying only on transaction conflicts.
func (s *ActiveDrugStore) exec(ctx context.Context, sql string, vars map[string]any) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
		if err != nil && !isRetryableError(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxRetries),
	)
	return err
}

// Compile-time check
var _ interfaces.ActiveDrugStore = (*ActiveDrugStore)(nil)
