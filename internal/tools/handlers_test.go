package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/engine"
	"github.com/loupe-dev/loupe/internal/index"
	"github.com/loupe-dev/loupe/internal/query"
	"github.com/loupe-dev/loupe/internal/search"
)

const fixture = `package kv

// Open opens the store at path.
func Open(path string) error {
	return nil
}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "kv"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "kv/store.go"), []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := index.Create(root)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := engine.New(root, store).Run(context.Background()); err != nil {
		t.Fatalf("index: %v", err)
	}
	return NewServer("test",
		query.New(root, store),
		search.New(root, store, config.Default().Search))
}

func callRequest(argsJSON string) *mcp.CallToolRequest {
	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(argsJSON)},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestHandleLocate(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleLocate(context.Background(), callRequest(`{"name":"Open"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}

	var payload struct {
		Matches []query.Location `json:"matches"`
		Total   int              `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Total != 1 || payload.Matches[0].EntityID != "kv/store.go:Open" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHandleLocateMissingName(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleLocate(context.Background(), callRequest(`{}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
}

func TestHandleLocateNotFoundCarriesSuggestions(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleLocate(context.Background(), callRequest(`{"name":"Opne"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(t, res), "suggestions") {
		t.Fatalf("missing suggestions: %s", resultText(t, res))
	}
}

func TestHandleInfo(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleInfo(context.Background(), callRequest(`{"ref":"kv/store.go:Open"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}

	var info query.EntityInfo
	if err := json.Unmarshal([]byte(resultText(t, res)), &info); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if info.Description != "Open opens the store at path." {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestHandleFileInfo(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleFileInfo(context.Background(), callRequest(`{"path":"kv/store.go"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}

	var report query.FileReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(report.Entities) != 2 { // module + Open
		t.Fatalf("unexpected entity count: %+v", report)
	}
}

func TestHandleSearch(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleSearch(context.Background(), callRequest(`{"query":"opens store"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}

	var payload struct {
		Results []search.Result `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(payload.Results) == 0 || payload.Results[0].QualifiedName != "Open" {
		t.Fatalf("unexpected results: %+v", payload.Results)
	}
}
