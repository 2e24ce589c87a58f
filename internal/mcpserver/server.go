// Package mcpserver exposes the query pipeline as MCP tools.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pumpside/fueldocs/internal/docindex"
	"github.com/pumpside/fueldocs/internal/query"
	"github.com/pumpside/fueldocs/internal/state"
	"github.com/pumpside/fueldocs/internal/vector"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Engine *query.Engine
	Store  vector.Store
	Docs   *docindex.Index
	State  *state.Store
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "fueldocs-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_fuel_docs",
		Description: "Answer a fuel-system question from the indexed product documentation. Returns the answer text with cited source URLs.",
	}, makeAskHandler(cfg.Engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Report how many documents and chunks are indexed and how many URLs the ingestion state tracks.",
	}, makeStatusHandler(cfg.Store, cfg.Docs, cfg.State))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until the client
// disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func makeAskHandler(engine *query.Engine) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		answer, err := engine.AskTopK(ctx, input.Question, input.TopK)
		if err != nil {
			return nil, AskOutput{}, fmt.Errorf("answer question: %w", err)
		}
		sources := answer.Sources
		if sources == nil {
			sources = []string{}
		}
		return nil, AskOutput{
			Answer:  answer.Text,
			Sources: sources,
			Model:   answer.ModelSlug,
		}, nil
	}
}

func makeStatusHandler(store vector.Store, docs *docindex.Index, st *state.Store) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		chunks, err := store.Count(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("count chunks: %w", err)
		}
		documents, err := docs.Count(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("count documents: %w", err)
		}
		return nil, StatusOutput{
			Documents:   documents,
			Chunks:      chunks,
			TrackedURLs: len(st.Load()),
			Ephemeral:   store.Ephemeral(),
		}, nil
	}
}
