package app

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/models"
	"github.com/bobmcallan/agentdrugs/internal/storage/memory"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	logger := common.NewSilentLogger()
	mgr := memory.NewManager(logger)
	require.NoError(t, mgr.DrugStore().SaveDrug(context.Background(), &models.Drug{
		Name: "coach", Prompt: "Be encouraging.", DefaultDurationMinutes: 45,
	}))
	a := New(common.NewDefaultConfig(), logger, mgr)
	t.Cleanup(a.Close)
	return a
}

func agentContext() context.Context {
	return common.WithAgentIdentity(context.Background(), &models.AgentIdentity{
		AgentID: "agent-1", UserID: "user-1", Name: "cli",
	})
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), ctx context.Context, args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	result, err := handler(ctx, request)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	return result.Content[0].(mcp.TextContent).Text, result.IsError
}

func TestHandleListDrugs(t *testing.T) {
	a := newTestApp(t)
	text, isErr := callTool(t, handleListDrugs(a.Drugs, a.Logger), agentContext(), nil)
	assert.False(t, isErr)
	assert.Equal(t, "Available drugs:\n\n**coach** (45 min)\nBe encouraging.", text)
}

func TestHandleTakeDrug(t *testing.T) {
	a := newTestApp(t)
	handler := handleTakeDrug(a.Drugs, a.Logger)

	text, isErr := callTool(t, handler, agentContext(), map[string]interface{}{"name": "coach"})
	assert.False(t, isErr)
	assert.Equal(t, "Successfully took coach! Active for 45 minutes.\n\nEffect: Be encouraging.", text)

	text, isErr = callTool(t, handler, agentContext(), map[string]interface{}{"name": "coach", "duration": float64(10)})
	assert.False(t, isErr)
	assert.Contains(t, text, "Active for 10 minutes.")

	text, isErr = callTool(t, handler, agentContext(), map[string]interface{}{"name": "ghost"})
	assert.True(t, isErr)
	assert.Equal(t, "Drug 'ghost' not found. Use list_drugs() to see available options.", text)

	_, isErr = callTool(t, handler, agentContext(), map[string]interface{}{})
	assert.True(t, isErr)

	_, isErr = callTool(t, handler, agentContext(), map[string]interface{}{"name": "coach", "duration": float64(-5)})
	assert.True(t, isErr)

	text, isErr = callTool(t, handler, context.Background(), map[string]interface{}{"name": "coach"})
	assert.True(t, isErr)
	assert.Equal(t, errUnauthenticated, text)
}

func TestHandleActiveDrugsAndDetox(t *testing.T) {
	a := newTestApp(t)
	ctx := agentContext()

	text, _ := callTool(t, handleActiveDrugs(a.Drugs, a.Logger), ctx, nil)
	assert.Equal(t, "No active drugs.", text)

	text, _ = callTool(t, handleDetox(a.Drugs, a.Logger), ctx, nil)
	assert.Equal(t, "✨ No active drugs to clear. You're already clean!", text)

	_, isErr := callTool(t, handleTakeDrug(a.Drugs, a.Logger), ctx, map[string]interface{}{"name": "coach"})
	require.False(t, isErr)

	text, _ = callTool(t, handleActiveDrugs(a.Drugs, a.Logger), ctx, nil)
	assert.True(t, strings.HasPrefix(text, "Active drugs:\n\n**coach** - 45 min remaining"), text)

	text, isErr = callTool(t, handleDetox(a.Drugs, a.Logger), ctx, nil)
	assert.False(t, isErr)
	assert.Contains(t, text, "**Removed drugs:**\n- coach\n\n")

	text, _ = callTool(t, handleActiveDrugs(a.Drugs, a.Logger), ctx, nil)
	assert.Equal(t, "No active drugs.", text)
}
