// Package drugs applies catalog drugs to agents and renders the results
// as the text returned by the MCP tools.
package drugs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
)

var (
	// ErrDrugNotFound is returned by Take for names missing from the catalog.
	ErrDrugNotFound = errors.New("drug not found")
	// ErrInvalidDuration is returned by Take for negative durations.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")
)

// Service combines the catalog with the per-agent active set.
type Service struct {
	catalog interfaces.DrugStore
	active  interfaces.ActiveDrugStore
	logger  *common.Logger

	Now func() time.Time
}

// NewService creates a Service over storage.
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		catalog: storage.DrugStore(),
		active:  storage.ActiveDrugStore(),
		logger:  logger,
		Now:     time.Now,
	}
}

// TakeResult describes a drug that was just applied.
type TakeResult struct {
	Drug            *models.Drug
	DurationMinutes int
	ExpiresAt       time.Time
}

// Catalog lists every available drug sorted by name.
func (s *Service) Catalog(ctx context.Context) ([]*models.Drug, error) {
	drugs, err := s.catalog.ListDrugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drugs: %w", err)
	}
	return drugs, nil
}

// Take applies name to the agent for durationMinutes, or for the drug's
// default when durationMinutes is zero. Taking an active drug again
// replaces its expiry.
func (s *Service) Take(ctx context.Context, id *models.AgentIdentity, name string, durationMinutes int) (*TakeResult, error) {
	if durationMinutes < 0 {
		return nil, ErrInvalidDuration
	}

	drug, err := s.catalog.GetDrug(ctx, name)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, fmt.Errorf("%q: %w", name, ErrDrugNotFound)
		}
		return nil, fmt.Errorf("failed to load drug: %w", err)
	}

	duration := durationMinutes
	if duration == 0 {
		duration = drug.DefaultDurationMinutes
	}
	now := s.Now()
	expiresAt := now.Add(time.Duration(duration) * time.Minute)

	event := &models.UsageEvent{
		UserID:          id.UserID,
		AgentID:         id.AgentID,
		DrugName:        drug.Name,
		DurationMinutes: duration,
		TakenAt:         now,
	}
	if err := s.catalog.RecordUsage(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}

	entry := models.ActiveDrug{Name: drug.Name, Prompt: drug.Prompt, ExpiresAt: expiresAt}
	if err := s.active.Add(ctx, id.UserID, id.AgentID, entry); err != nil {
		return nil, fmt.Errorf("failed to activate drug: %w", err)
	}

	s.logger.Info().
		Str("agent_id", id.AgentID).
		Str("drug", drug.Name).
		Int("duration_minutes", duration).
		Msg("Drug taken")

	return &TakeResult{Drug: drug, DurationMinutes: duration, ExpiresAt: expiresAt}, nil
}

// Active returns the agent's unexpired drugs.
func (s *Service) Active(ctx context.Context, id *models.AgentIdentity) ([]models.ActiveDrug, error) {
	drugs, err := s.active.List(ctx, id.UserID, id.AgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active drugs: %w", err)
	}
	return drugs, nil
}

// Detox clears the agent's active set and returns the names that were
// active. Nothing is written when the set is already empty.
func (s *Service) Detox(ctx context.Context, id *models.AgentIdentity) ([]string, error) {
	drugs, err := s.Active(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(drugs) == 0 {
		return nil, nil
	}

	if err := s.active.Clear(ctx, id.UserID, id.AgentID); err != nil {
		return nil, fmt.Errorf("failed to clear active drugs: %w", err)
	}

	names := make([]string, len(drugs))
	for i, d := range drugs {
		names[i] = d.Name
	}
	s.logger.Info().
		Str("agent_id", id.AgentID).
		Int("count", len(names)).
		Msg("Detox cleared active drugs")
	return names, nil
}
