package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
)

type setKey struct {
	userID  string
	agentID string
}

// ActiveDrugStore implements interfaces.ActiveDrugStore in memory.
// A single mutex serialises every read-modify-write.
type ActiveDrugStore struct {
	mu     sync.Mutex
	sets   map[setKey][]models.ActiveDrug
	writes int

	Now func() time.Time
}

// NewActiveDrugStore creates an empty ActiveDrugStore.
func NewActiveDrugStore() *ActiveDrugStore {
	return &ActiveDrugStore{sets: make(map[setKey][]models.ActiveDrug), Now: time.Now}
}

func (s *ActiveDrugStore) Add(_ context.Context, userID, agentID string, entry models.ActiveDrug) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := setKey{userID, agentID}
	s.sets[k] = models.ReplaceDrug(s.sets[k], entry)
	s.writes++
	return nil
}

func (s *ActiveDrugStore) List(_ context.Context, userID, agentID string) ([]models.ActiveDrug, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := setKey{userID, agentID}
	stored := s.sets[k]
	active := models.FilterActive(stored, s.Now())
	if len(active) < len(stored) {
		s.sets[k] = active
		s.writes++
	}
	return append([]models.ActiveDrug(nil), active...), nil
}

func (s *ActiveDrugStore) Clear(_ context.Context, userID, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[setKey{userID, agentID}] = nil
	s.writes++
	return nil
}

// Compile-time check
var _ interfaces.ActiveDrugStore = (*ActiveDrugStore)(nil)
