// Package mcpserver exposes the triage triggers as MCP tools
package mcpserver

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/input"
)

// NewServer builds an MCP server with the triage tools registered
func NewServer(triage input.TriageUseCase, version string) *mcpsdk.Server {
	server := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "inboxzero",
			Version: version,
		},
		nil,
	)
	registerTriageTools(server, &tools{triage: triage})
	return server
}

// RunServer starts the MCP server over stdio transport.
func RunServer(ctx context.Context, triage input.TriageUseCase, version string) error {
	return NewServer(triage, version).Run(ctx, &mcpsdk.StdioTransport{})
}
