// Package mcpserver exposes the ingestion pipeline, belief store, and
// belief graph over the Model Context Protocol, generalizing the teacher's
// internal/mcp tool-registration pattern to this module's storage surface.
package mcpserver

import (
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/savantly-net/headkey/internal/pipeline"
	"github.com/savantly-net/headkey/internal/ports"
)

const serverInstructions = `You have access to a belief store for AI agents.

TOOLS:
- ingest_content: extract and persist beliefs from raw text, detecting
  conflicts and supersession against what the agent already believes.
- get_belief: fetch a single belief by ID.
- query_beliefs: list an agent's beliefs, optionally filtered by category
  or free-text search.
- graph_reachable: find beliefs reachable from a starting belief by
  following relationships up to a bounded depth.

Call ingest_content to record new information; call the others to inspect
what has already been recorded before acting on it.`

// Server wraps the MCP server with this module's storage and pipeline.
type Server struct {
	mcpServer *mcpserver.MCPServer
	pipeline  *pipeline.Pipeline
	beliefs   ports.BeliefStore
	graph     ports.GraphQuery
	logger    *slog.Logger
}

// New creates and configures an MCP server exposing every tool over the
// given pipeline, belief store, and graph query surface.
func New(p *pipeline.Pipeline, beliefs ports.BeliefStore, graphQuery ports.GraphQuery, logger *slog.Logger, version string) *Server {
	s := &Server{pipeline: p, beliefs: beliefs, graph: graphQuery, logger: logger}

	s.mcpServer = mcpserver.NewMCPServer(
		"headkey",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func textResult(data []byte) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

