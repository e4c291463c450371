package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/deskpilot/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run deskpilot as an MCP (Model Context Protocol) server",
		Long: `Start an MCP server that exposes the pipeline over stdio.

The MCP server allows AI tools to invoke deskpilot directly:

  • deskpilot_status   - Captured events, backlog and saved plans
  • deskpilot_enrich   - Run one enrichment batch
  • deskpilot_learn    - Synthesize and save a plan from recent activity
  • deskpilot_run      - Replay a saved plan
  • deskpilot_plans    - List saved plans
  • deskpilot_cleanup  - Delete expired artifacts

The server communicates via JSON-RPC 2.0 over stdin/stdout, following the
Model Context Protocol specification.

Example usage in an MCP client config:

  {
    "mcpServers": {
      "deskpilot": {
        "command": "deskpilot",
        "args": ["mcp-server"]
      }
    }
  }
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "deskpilot",
				Version: version,
				Root:    root,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			if err := server.Run(context.Background()); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}
}
