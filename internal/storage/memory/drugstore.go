package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
)

// DrugStore implements interfaces.DrugStore in memory.
type DrugStore struct {
	mu     sync.RWMutex
	drugs  map[string]models.Drug
	events []models.UsageEvent
}

// NewDrugStore creates an empty DrugStore.
func NewDrugStore() *DrugStore {
	return &DrugStore{drugs: make(map[string]models.Drug)}
}

func (s *DrugStore) ListDrugs(_ context.Context) ([]*models.Drug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Drug, 0, len(s.drugs))
	for _, d := range s.drugs {
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *DrugStore) GetDrug(_ context.Context, name string) (*models.Drug, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drugs[name]
	if !ok {
		return nil, fmt.Errorf("drug %q: %w", name, interfaces.ErrNotFound)
	}
	return &d, nil
}

func (s *DrugStore) SaveDrug(_ context.Context, drug *models.Drug) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drugs[drug.Name] = *drug
	return nil
}

func (s *DrugStore) RecordUsage(_ context.Context, event *models.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// UsageEvents returns a copy of every recorded event.
func (s *DrugStore) UsageEvents() []models.UsageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.UsageEvent(nil), s.events...)
}

// Compile-time check
var _ interfaces.DrugStore = (*DrugStore)(nil)
