package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lumen/internal/adapters/driving/mcp"
	"github.com/custodia-labs/lumen/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the tools ask, search, list_tools and call_tool, and the
resources lumen://index and lumen://history.

By default, the server communicates over stdio using JSON-RPC. Use --port to
start an HTTP server instead; it also serves Prometheus metrics on /metrics.
Use --watch to rebuild the index when the lecture files change.

Examples:
  # Stdio mode (default, for desktop assistants)
  lumen mcp serve

  # HTTP mode with live re-indexing
  lumen mcp serve --port 8080 --watch

Assistant configuration:
  {
    "mcpServers": {
      "lumen": {
        "command": "/path/to/lumen",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("watch", false, "re-index when the corpus changes")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := ensureIndex(ctx); err != nil {
		return err
	}

	ports := &mcp.Ports{
		Search:  indexService,
		Tools:   toolRegistry,
		Answer:  answerService,
		Index:   indexService,
		History: historyService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if watch && watchCorpus != nil {
		go runWatcher(ctx)
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}

// runWatcher rebuilds the index whenever the corpus settles after a change.
func runWatcher(ctx context.Context) {
	err := watchCorpus(ctx, func() {
		logger.Info("Corpus changed, re-indexing")
		if _, err := ingestService.Ingest(ctx); err != nil {
			logger.Warn("Re-index failed, keeping previous index: %v", err)
		}
	})
	if err != nil {
		logger.Warn("Corpus watcher stopped: %v", err)
	}
}
