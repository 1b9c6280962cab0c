// Package oauth implements the authorization server: dynamic client
// registration, authorization with mandatory PKCE, code exchange, bearer
// validation and revocation. Bearer tokens are opaque and looked up in
// storage on every use.
package oauth

import (
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/credentials"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
)

// Service bundles the authorization server components over one storage manager.
type Service struct {
	Registry   *Registry
	Agents     *Agents
	Authorizer *Authorizer
	Exchanger  *Exchanger
	Bearer     *BearerValidator
	Revoker    *Revoker
}

// NewService wires every component to storage.
func NewService(storage interfaces.StorageManager, auth common.AuthConfig, creds *credentials.Generator, logger *common.Logger) *Service {
	if creds == nil {
		creds = credentials.Default
	}
	agents := NewAgents(storage.AgentStore(), creds, logger)
	return &Service{
		Registry:   NewRegistry(storage.OAuthStore(), creds, logger),
		Agents:     agents,
		Authorizer: NewAuthorizer(agents, storage.OAuthStore(), creds, auth.GetCodeExpiry(), logger),
		Exchanger:  NewExchanger(storage.OAuthStore(), logger),
		Bearer:     NewBearerValidator(storage.AgentStore(), auth.GetAgentTTL(), logger),
		Revoker:    NewRevoker(storage.AgentStore(), logger),
	}
}

// SetClock replaces the time source of every component.
func (s *Service) SetClock(now func() time.Time) {
	s.Registry.Now = now
	s.Agents.Now = now
	s.Authorizer.Now = now
	s.Exchanger.Now = now
	s.Bearer.Now = now
}
