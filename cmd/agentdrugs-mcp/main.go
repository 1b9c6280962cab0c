// Command agentdrugs-mcp bridges a stdio MCP client to the agentdrugs HTTP
// endpoint, attaching the agent's bearer token to every request.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	serverURL := os.Getenv("AGENTDRUGS_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	token := os.Getenv("AGENTDRUGS_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "AGENTDRUGS_TOKEN is required")
		os.Exit(1)
	}

	proxy := NewStdioProxy(strings.TrimRight(serverURL, "/")+"/mcp", token, 120*time.Second)
	if err := proxy.RunWithIO(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "proxy error: %v\n", err)
		os.Exit(1)
	}
}
