package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/models"
)

// OAuthStore implements interfaces.OAuthStore in memory.
type OAuthStore struct {
	mu      sync.Mutex
	clients map[string]models.OAuthClient
	codes   map[string]models.OAuthCode
}

// NewOAuthStore creates an empty OAuthStore.
func NewOAuthStore() *OAuthStore {
	return &OAuthStore{
		clients: make(map[string]models.OAuthClient),
		codes:   make(map[string]models.OAuthCode),
	}
}

func (s *OAuthStore) SaveClient(_ context.Context, client *models.OAuthClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *client
	c.RedirectURIs = append([]string(nil), client.RedirectURIs...)
	c.GrantTypes = append([]string(nil), client.GrantTypes...)
	c.ResponseTypes = append([]string(nil), client.ResponseTypes...)
	s.clients[c.ClientID] = c
	return nil
}

func (s *OAuthStore) GetClient(_ context.Context, clientID string) (*models.OAuthClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("oauth client %s: %w", clientID, interfaces.ErrNotFound)
	}
	return &c, nil
}

func (s *OAuthStore) SaveCode(_ context.Context, code *models.OAuthCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = *code
	return nil
}

func (s *OAuthStore) GetCode(_ context.Context, code string) (*models.OAuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("oauth code: %w", interfaces.ErrNotFound)
	}
	return &c, nil
}

func (s *OAuthStore) MarkCodeUsed(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok || c.Used {
		return false, nil
	}
	c.Used = true
	s.codes[code] = c
	return true, nil
}

func (s *OAuthStore) DeleteCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, code)
	return nil
}

func (s *OAuthStore) PurgeExpiredCodes(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, c := range s.codes {
		if c.Expired(now) {
			delete(s.codes, k)
			n++
		}
	}
	return n, nil
}

// Compile-time check
var _ interfaces.OAuthStore = (*OAuthStore)(nil)
