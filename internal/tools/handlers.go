package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/loupe-dev/loupe/internal/query"
)

func (s *Server) handleLocate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	name := getStringArg(args, "name")
	if name == "" {
		return errResult("missing required 'name' parameter"), nil
	}

	if getBoolArg(args, "one") {
		loc, err := s.queries.LocateOne(ctx, name)
		if err != nil {
			return domainError(err), nil
		}
		return jsonResult(map[string]any{"match": loc}), nil
	}

	locations, err := s.queries.Locate(ctx, name)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(map[string]any{
		"matches": locations,
		"total":   len(locations),
	}), nil
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	ref := getStringArg(args, "ref")
	if ref == "" {
		return errResult("missing required 'ref' parameter"), nil
	}

	info, err := s.queries.Info(ctx, ref)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(info), nil
}

func (s *Server) handleFileInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	path := getStringArg(args, "path")
	if path == "" {
		return errResult("missing required 'path' parameter"), nil
	}

	report, err := s.queries.FileInfo(ctx, path)
	if err != nil {
		return domainError(err), nil
	}
	return jsonResult(report), nil
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	q := getStringArg(args, "query")
	if q == "" {
		return errResult("missing required 'query' parameter"), nil
	}

	results, err := s.searcher.Search(ctx, q)
	if err != nil {
		return errResult(fmt.Sprintf("search error: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"results": results,
		"total":   len(results),
	}), nil
}

// domainError turns lookup failures into structured error results so
// callers see the candidates or suggestions, not just a message.
func domainError(err error) *mcp.CallToolResult {
	var ambiguous *query.AmbiguousError
	if errors.As(err, &ambiguous) {
		b := jsonResult(map[string]any{
			"error":      ambiguous.Error(),
			"candidates": ambiguous.Candidates,
		})
		b.IsError = true
		return b
	}
	var notFound *query.NotFoundError
	if errors.As(err, &notFound) {
		b := jsonResult(map[string]any{
			"error":       notFound.Error(),
			"suggestions": notFound.Suggestions,
		})
		b.IsError = true
		return b
	}
	return errResult(err.Error())
}
