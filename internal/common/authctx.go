package common

import (
	"context"

	"github.com/bobmcallan/agentdrugs/internal/models"
)

type contextKey int

const (
	agentIdentityKey contextKey = iota
	userIDKey
)

// WithAgentIdentity stores the authenticated agent in the request context.
func WithAgentIdentity(ctx context.Context, id *models.AgentIdentity) context.Context {
	return context.WithValue(ctx, agentIdentityKey, id)
}

// AgentIdentityFromContext retrieves the authenticated agent, or nil if absent.
func AgentIdentityFromContext(ctx context.Context) *models.AgentIdentity {
	id, _ := ctx.Value(agentIdentityKey).(*models.AgentIdentity)
	return id
}

// WithUserID stores the end-user id asserted by the identity provider.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the end-user id, or "" when the request is anonymous.
func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}
