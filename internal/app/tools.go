package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createListDrugsTool returns the list_drugs tool definition
func createListDrugsTool() mcp.Tool {
	return mcp.NewTool("list_drugs",
		mcp.WithDescription("List all available drugs that can modify agent behavior."),
	)
}

// createTakeDrugTool returns the take_drug tool definition
func createTakeDrugTool() mcp.Tool {
	return mcp.NewTool("take_drug",
		mcp.WithDescription("Take a drug to modify your behavior for a period of time. Taking a drug that is already active resets its duration."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the drug to take (see list_drugs)"),
		),
		mcp.WithNumber("duration",
			mcp.Description("Duration in minutes (default: the drug's default duration)"),
		),
	)
}

// createActiveDrugsTool returns the active_drugs tool definition
func createActiveDrugsTool() mcp.Tool {
	return mcp.NewTool("active_drugs",
		mcp.WithDescription("Show currently active drugs and their remaining time."),
	)
}

// createDetoxTool returns the detox tool definition
func createDetoxTool() mcp.Tool {
	return mcp.NewTool("detox",
		mcp.WithDescription("Remove all active drugs and return to standard behavior."),
	)
}
