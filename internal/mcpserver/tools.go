package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("ingest_content",
			mcplib.WithDescription(`Extract beliefs from raw content and persist them.

WHEN TO USE: whenever an agent learns something worth remembering —
a user preference, a fact about the world, a decision, a piece of
domain knowledge. Each call categorizes the content, splits it into
candidate belief statements, checks each one against what the agent
already believes, flags conflicts, and links supersession when a new
belief clearly updates an older one.

WHAT YOU GET BACK: the assigned category, and for each extracted belief
its persisted ID, whether a similar prior belief was found, whether a
conflict was detected (and its conflict ID if so), and the supersession
relationship created when a new belief updates an older one without
conflicting.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("content",
				mcplib.Description("The raw text to extract beliefs from."),
				mcplib.Required(),
			),
			mcplib.WithString("agent_id",
				mcplib.Description("The agent this content belongs to."),
				mcplib.Required(),
			),
		),
		s.handleIngestContent,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("get_belief",
			mcplib.WithDescription(`Fetch a single belief by ID.

WHEN TO USE: after query_beliefs or graph_reachable returns a belief ID
you want the full record for — statement, category, confidence, tags,
and metadata.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("belief_id",
				mcplib.Description("The belief ID to fetch."),
				mcplib.Required(),
			),
		),
		s.handleGetBelief,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("query_beliefs",
			mcplib.WithDescription(`List an agent's beliefs, optionally filtered.

WHEN TO USE: to see what an agent already believes before acting — pass
category to narrow to one topic, or query for a free-text search ranked
by confidence. With neither, returns the agent's most recently updated
beliefs.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("agent_id",
				mcplib.Description("The agent whose beliefs to list."),
				mcplib.Required(),
			),
			mcplib.WithString("category",
				mcplib.Description("Restrict to one category. Omit to search across all categories."),
			),
			mcplib.WithString("query",
				mcplib.Description("Free-text search over belief statements, ranked by confidence descending. Ignored if category is set."),
			),
			mcplib.WithBoolean("include_inactive",
				mcplib.Description("Include deactivated beliefs. Defaults to false."),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum beliefs to return."),
				mcplib.Min(1),
				mcplib.Max(200),
				mcplib.DefaultNumber(20),
			),
		),
		s.handleQueryBeliefs,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("graph_reachable",
			mcplib.WithDescription(`Find beliefs reachable from a starting belief by following
relationships up to a bounded depth.

WHEN TO USE: to explore what else connects to a belief before acting on
it in isolation — e.g. what a belief supports, contradicts, or has been
superseded by, transitively.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("belief_id",
				mcplib.Description("The starting belief ID."),
				mcplib.Required(),
			),
			mcplib.WithString("agent_id",
				mcplib.Description("The owning agent."),
				mcplib.Required(),
			),
			mcplib.WithNumber("max_depth",
				mcplib.Description("Maximum number of relationship hops to traverse."),
				mcplib.Min(1),
				mcplib.Max(20),
				mcplib.DefaultNumber(3),
			),
			mcplib.WithString("direction",
				mcplib.Description(`Which edges to follow: "outgoing", "incoming", or "both" (default).`),
			),
		),
		s.handleGraphReachable,
	)
}

func (s *Server) handleIngestContent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	content := request.GetString("content", "")
	agentID := request.GetString("agent_id", "")
	if content == "" {
		return errorResult("content is required"), nil
	}
	if agentID == "" {
		return errorResult("agent_id is required"), nil
	}

	result, err := s.pipeline.Ingest(ctx, content, domain.AgentID(agentID))
	if err != nil {
		return errorResult(fmt.Sprintf("ingest failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	return textResult(data), nil
}

func (s *Server) handleGetBelief(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id := request.GetString("belief_id", "")
	if id == "" {
		return errorResult("belief_id is required"), nil
	}

	belief, err := s.beliefs.Get(ctx, domain.BeliefID(id))
	if err != nil {
		return errorResult(fmt.Sprintf("get_belief failed: %v", err)), nil
	}
	if belief == nil {
		return errorResult(fmt.Sprintf("no belief found with ID %q", id)), nil
	}

	data, _ := json.MarshalIndent(belief, "", "  ")
	return textResult(data), nil
}

func (s *Server) handleQueryBeliefs(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	if agentID == "" {
		return errorResult("agent_id is required"), nil
	}
	agent := domain.AgentID(agentID)
	category := request.GetString("category", "")
	query := request.GetString("query", "")
	includeInactive := request.GetBool("include_inactive", false)
	limit := request.GetInt("limit", 20)

	var (
		beliefs []domain.Belief
		err     error
	)
	switch {
	case category != "":
		beliefs, err = s.beliefs.InCategory(ctx, category, &agent, includeInactive)
		if len(beliefs) > limit {
			beliefs = beliefs[:limit]
		}
	case query != "":
		beliefs, err = s.beliefs.SearchText(ctx, query, &agent, limit)
	default:
		beliefs, err = s.beliefs.ForAgent(ctx, agent, includeInactive)
		if len(beliefs) > limit {
			beliefs = beliefs[:limit]
		}
	}
	if err != nil {
		return errorResult(fmt.Sprintf("query_beliefs failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(beliefs, "", "  ")
	return textResult(data), nil
}

func (s *Server) handleGraphReachable(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	beliefID := request.GetString("belief_id", "")
	agentID := request.GetString("agent_id", "")
	if beliefID == "" || agentID == "" {
		return errorResult("belief_id and agent_id are required"), nil
	}
	maxDepth := request.GetInt("max_depth", 3)
	dir, ok := ports.ParseDirection(request.GetString("direction", string(ports.DirBoth)))
	if !ok {
		dir = ports.DirBoth
	}

	ids, err := s.graph.Reachable(ctx, domain.BeliefID(beliefID), domain.AgentID(agentID), maxDepth, dir, nil)
	if err != nil {
		return errorResult(fmt.Sprintf("graph_reachable failed: %v", err)), nil
	}

	data, _ := json.MarshalIndent(ids, "", "  ")
	return textResult(data), nil
}
