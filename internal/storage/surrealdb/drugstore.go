package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type drugRow struct {
	Name                   string `json:"name"`
	Prompt                 string `json:"prompt"`
	DefaultDurationMinutes int    `json:"default_duration_minutes"`
}

// DrugStore implements interfaces.DrugStore using SurrealDB.
type DrugStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewDrugStore creates a new DrugStore.
func NewDrugStore(db *surrealdb.DB, logger *common.Logger) *DrugStore {
	return &DrugStore{db: db, logger: logger}
}

func (s *DrugStore) ListDrugs(ctx context.Context) ([]*models.Drug, error) {
	sql := "SELECT name, prompt, default_duration_minutes FROM drug ORDER BY name ASC"
	results, err := surrealdb.Query[[]drugRow](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list drugs: %w", err)
	}
	var drugs []*models.Drug
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			drugs = append(drugs, &models.Drug{
				Name:                   row.Name,
				Prompt:                 row.Prompt,
				DefaultDurationMinutes: row.DefaultDurationMinutes,
			})
		}
	}
	return drugs, nil
}

func (s *DrugStore) GetDrug(ctx context.Context, name string) (*models.Drug, error) {
	sql := "SELECT name, prompt, default_duration_minutes FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("drug", name),
	}
	results, err := surrealdb.Query[[]drugRow](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("drug %q: %w", name, interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get drug: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("drug %q: %w", name, interfaces.ErrNotFound)
	}
	row := (*results)[0].Result[0]
	return &models.Drug{
		Name:                   row.Name,
		Prompt:                 row.Prompt,
		DefaultDurationMinutes: row.DefaultDurationMinutes,
	}, nil
}

func (s *DrugStore) SaveDrug(ctx context.Context, drug *models.Drug) error {
	sql := "UPSERT $rid SET name = $name, prompt = $prompt, default_duration_minutes = $duration"
	vars := map[string]any{
		"rid":      surrealmodels.NewRecordID("drug", drug.Name),
		"name":     drug.Name,
		"prompt":   drug.Prompt,
		"duration": drug.DefaultDurationMinutes,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save drug: %w", err)
	}
	return nil
}

func (s *DrugStore) RecordUsage(ctx context.Context, event *models.UsageEvent) error {
	sql := `CREATE drug_usage SET
		user_id = $user_id, agent_id = $agent_id, drug_name = $drug_name,
		duration_minutes = $duration_minutes, taken_at = $taken_at`
	vars := map[string]any{
		"user_id":          event.UserID,
		"agent_id":         event.AgentID,
		"drug_name":        event.DrugName,
		"duration_minutes": event.DurationMinutes,
		"taken_at":         event.TakenAt,
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to record usage event: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.DrugStore = (*DrugStore)(nil)
