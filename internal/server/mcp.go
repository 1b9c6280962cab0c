package server

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/agentdrugs/internal/common"
)

// mcpHandler serves the MCP tools over streamable HTTP. It runs behind
// requireAgent, so the request context already carries the agent identity.
func (s *Server) mcpHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.app.MCPServer,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if id := common.AgentIdentityFromContext(r.Context()); id != nil {
				return common.WithAgentIdentity(ctx, id)
			}
			return ctx
		}),
	)
}
