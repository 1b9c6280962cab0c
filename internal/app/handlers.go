package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/drugs"
)

const errUnauthenticated = "Error: authentication required"

// handleListDrugs implements the list_drugs tool
func handleListDrugs(svc *drugs.Service, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		catalog, err := svc.Catalog(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("list_drugs failed")
			return errorResult("Error fetching drugs"), nil
		}
		return textResult(drugs.FormatCatalog(catalog)), nil
	}
}

// handleTakeDrug implements the take_drug tool
func handleTakeDrug(svc *drugs.Service, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := common.AgentIdentityFromContext(ctx)
		if id == nil {
			return errorResult(errUnauthenticated), nil
		}

		name, err := request.RequireString("name")
		if err != nil || name == "" {
			return errorResult("Error: name parameter is required"), nil
		}
		duration := request.GetInt("duration", 0)

		res, err := svc.Take(ctx, id, name, duration)
		switch {
		case errors.Is(err, drugs.ErrDrugNotFound):
			return errorResult(drugs.FormatNotFound(name)), nil
		case errors.Is(err, drugs.ErrInvalidDuration):
			return errorResult(fmt.Sprintf("Error taking drug: %v", err)), nil
		case err != nil:
			logger.Error().Err(err).Str("agent_id", id.AgentID).Str("drug", name).Msg("take_drug failed")
			return errorResult("Error taking drug"), nil
		}
		return textResult(drugs.FormatTaken(res)), nil
	}
}

// handleActiveDrugs implements the active_drugs tool
func handleActiveDrugs(svc *drugs.Service, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := common.AgentIdentityFromContext(ctx)
		if id == nil {
			return errorResult(errUnauthenticated), nil
		}

		active, err := svc.Active(ctx, id)
		if err != nil {
			logger.Error().Err(err).Str("agent_id", id.AgentID).Msg("active_drugs failed")
			return errorResult("Error fetching active drugs"), nil
		}
		return textResult(drugs.FormatActive(active, time.Now())), nil
	}
}

// handleDetox implements the detox tool
func handleDetox(svc *drugs.Service, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := common.AgentIdentityFromContext(ctx)
		if id == nil {
			return errorResult(errUnauthenticated), nil
		}

		start := time.Now()
		cleared, err := svc.Detox(ctx, id)
		if err != nil {
			logger.Error().Err(err).
				Str("agent_id", id.AgentID).
				Dur("elapsed", time.Since(start)).
				Msg("detox failed")
			return errorResult("Failed to clear drugs"), nil
		}
		return textResult(drugs.FormatDetox(cleared)), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
