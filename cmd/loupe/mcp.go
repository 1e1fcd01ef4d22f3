package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/query"
	"github.com/loupe-dev/loupe/internal/search"
	"github.com/loupe-dev/loupe/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the index over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	root, store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := config.Load(root)
	srv := tools.NewServer(version,
		query.New(root, store),
		search.New(root, store, cfg.Search))

	return srv.MCPServer().Run(cmd.Context(), &mcp.StdioTransport{})
}
