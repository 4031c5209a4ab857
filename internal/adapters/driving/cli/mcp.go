package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencefadb/opencefadb-cli/internal/adapters/driving/mcp"
	"github.com/opencefadb/opencefadb-cli/internal/core/services"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can resolve and
fetch fan data from the active profile.

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve over HTTP instead.

Examples:
  # Stdio mode
  opencefadb mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  opencefadb mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "opencefadb": {
        "command": "/path/to/opencefadb",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	return withSession(cmd, func(ctx context.Context, s *services.Session) error {
		server, err := mcp.NewServer(&mcp.Ports{
			Resolution: s.Resolution,
			Metadata:   s.Metadata,
			Profiles:   profileService,
		}, mcp.WithVersion(version))
		if err != nil {
			return err
		}

		if port > 0 {
			addr := fmt.Sprintf(":%d", port)
			fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(ctx, addr)
		}
		return server.Run(ctx)
	})
}
