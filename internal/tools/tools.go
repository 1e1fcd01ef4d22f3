// Package tools exposes the query and search engines over MCP. The
// adapter is a thin pass-through: handlers translate arguments, call
// an engine, and serialize the result.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/loupe-dev/loupe/internal/query"
	"github.com/loupe-dev/loupe/internal/search"
)

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp      *mcp.Server
	queries  *query.Engine
	searcher *search.Engine
}

// NewServer creates an MCP server with all tools registered.
func NewServer(version string, queries *query.Engine, searcher *search.Engine) *Server {
	srv := &Server{
		queries:  queries,
		searcher: searcher,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "loupe",
				Version: version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "loupe_locate",
		Description: "Find code entities by name. Accepts a simple name ('Close'), a qualified name ('Store.Close'), or a path-qualified id ('pkg/store.go:Store.Close'). Returns matches with current line extents and signatures read live from disk.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"description": "Entity name, qualified name, or path:qualified_name id"
				},
				"one": {
					"type": "boolean",
					"description": "Require a single unambiguous match"
				}
			},
			"required": ["name"]
		}`),
	}, s.handleLocate)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "loupe_info",
		Description: "Describe one entity: location, signature, and the best available description (cached summary, else docs, else signature). Accepts 'path:entity', a bare indexed file path (module info), or an entity name.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"ref": {
					"type": "string",
					"description": "Entity reference, e.g. 'pkg/store.go:Open' or 'pkg/store.go'"
				}
			},
			"required": ["ref"]
		}`),
	}, s.handleInfo)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "loupe_file_info",
		Description: "List every entity of one source file with its index status. The file is re-parsed live; entities not yet reflected in the index show as pending_update.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Repository-relative file path"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleFileInfo)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "loupe_search",
		Description: "Keyword search over entity summaries and docs using BM25 ranking with code-aware tokenization (camelCase and snake_case split). Returns ranked entities with matching snippets.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "Search terms, natural language or identifiers"
				}
			},
			"required": ["query"]
		}`),
	}, s.handleSearch)
}

// jsonResult marshals data to JSON and returns it as a tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getBoolArg extracts a boolean argument from parsed args.
func getBoolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b
}
