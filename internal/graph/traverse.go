package graph

import (
	"context"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
)

// edgesFrom returns the relationships leaving/entering id according to dir,
// filtered to types when non-empty.
func (q *Query) edgesFrom(ctx context.Context, id domain.BeliefID, agent domain.AgentID, dir ports.Direction, types []domain.RelationshipType) ([]domain.Relationship, error) {
	var edges []domain.Relationship
	switch dir {
	case ports.DirOutgoing:
		out, err := q.relationships.Outgoing(ctx, id, agent)
		if err != nil {
			return nil, err
		}
		edges = out
	case ports.DirIncoming:
		in, err := q.relationships.Incoming(ctx, id, agent)
		if err != nil {
			return nil, err
		}
		edges = in
	default:
		all, err := q.relationships.ForBelief(ctx, id, agent)
		if err != nil {
			return nil, err
		}
		edges = all
	}
	if len(types) == 0 {
		return edges, nil
	}
	allowed := make(map[domain.RelationshipType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	var out []domain.Relationship
	for _, r := range edges {
		if allowed[r.Type] {
			out = append(out, r)
		}
	}
	return out, nil
}

func neighborOf(r domain.Relationship, id domain.BeliefID, dir ports.Direction) (domain.BeliefID, bool) {
	switch {
	case r.SourceBeliefID == id && (dir == ports.DirOutgoing || dir == ports.DirBoth):
		return r.TargetBeliefID, true
	case r.TargetBeliefID == id && (dir == ports.DirIncoming || dir == ports.DirBoth):
		return r.SourceBeliefID, true
	case r.SourceBeliefID == id:
		return r.TargetBeliefID, true
	case r.TargetBeliefID == id:
		return r.SourceBeliefID, true
	default:
		return "", false
	}
}

// Connected lists the beliefs directly reachable from belief in one hop,
// restricted to dir/types, capped at limit (0 = unlimited).
func (q *Query) Connected(ctx context.Context, belief domain.BeliefID, agent domain.AgentID, dir ports.Direction, types []domain.RelationshipType, limit int) ([]domain.Belief, error) {
	edges, err := q.edgesFrom(ctx, belief, agent, dir, types)
	if err != nil {
		return nil, err
	}
	seen := make(map[domain.BeliefID]bool)
	var ids []domain.BeliefID
	for _, r := range edges {
		if neighbor, ok := neighborOf(r, belief, dir); ok && !seen[neighbor] {
			seen[neighbor] = true
			ids = append(ids, neighbor)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return q.beliefs.GetMany(ctx, ids)
}

// Degree counts the distinct edges touching belief in dir.
func (q *Query) Degree(ctx context.Context, belief domain.BeliefID, agent domain.AgentID, dir ports.Direction) (int, error) {
	edges, err := q.edgesFrom(ctx, belief, agent, dir, nil)
	if err != nil {
		return 0, err
	}
	return len(edges), nil
}

// DirectlyConnected reports whether a and b share an edge (in either
// direction) of one of the given types (any type, if empty).
func (q *Query) DirectlyConnected(ctx context.Context, a, b domain.BeliefID, agent domain.AgentID, types []domain.RelationshipType) (bool, error) {
	edges, err := q.edgesFrom(ctx, a, agent, ports.DirBoth, types)
	if err != nil {
		return false, err
	}
	for _, r := range edges {
		if r.SourceBeliefID == b || r.TargetBeliefID == b {
			return true, nil
		}
	}
	return false, nil
}

type bfsFrontier struct {
	id    domain.BeliefID
	depth int
}

// Reachable does a breadth-first search from start out to maxDepth hops,
// returning every distinct belief id encountered (start excluded).
func (q *Query) Reachable(ctx context.Context, start domain.BeliefID, agent domain.AgentID, maxDepth int, dir ports.Direction, types []domain.RelationshipType) ([]domain.BeliefID, error) {
	visited := map[domain.BeliefID]bool{start: true}
	queue := []bfsFrontier{{id: start, depth: 0}}
	var out []domain.BeliefID

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		edges, err := q.edgesFrom(ctx, cur.id, agent, dir, types)
		if err != nil {
			return nil, err
		}
		for _, r := range edges {
			neighbor, ok := neighborOf(r, cur.id, dir)
			if !ok || visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			out = append(out, neighbor)
			queue = append(queue, bfsFrontier{id: neighbor, depth: cur.depth + 1})
		}
	}
	return out, nil
}

// pathStep is a breadth-first search parent link used by ShortestPath to
// reconstruct the winning path once the destination is reached.
type pathStep struct {
	id   domain.BeliefID
	edge domain.Relationship
	prev *pathStep
}

// ShortestPath returns the sequence of relationships forming the shortest
// src->dst path (any direction), up to maxDepth hops, or nil if none exists.
func (q *Query) ShortestPath(ctx context.Context, src, dst domain.BeliefID, agent domain.AgentID, maxDepth int) ([]domain.Relationship, error) {
	if src == dst {
		return nil, nil
	}
	visited := map[domain.BeliefID]bool{src: true}
	queue := []*pathStep{{id: src}}

	for depth := 0; len(queue) > 0 && depth < maxDepth; depth++ {
		var next []*pathStep
		for _, cur := range queue {
			edges, err := q.edgesFrom(ctx, cur.id, agent, ports.DirBoth, nil)
			if err != nil {
				return nil, err
			}
			for _, r := range edges {
				neighbor, ok := neighborOf(r, cur.id, ports.DirBoth)
				if !ok || visited[neighbor] {
					continue
				}
				s := &pathStep{id: neighbor, edge: r, prev: cur}
				if neighbor == dst {
					return reversePath(s), nil
				}
				visited[neighbor] = true
				next = append(next, s)
			}
		}
		queue = next
	}
	return nil, nil
}

func reversePath(s *pathStep) []domain.Relationship {
	var out []domain.Relationship
	for cur := s; cur.prev != nil; cur = cur.prev {
		out = append([]domain.Relationship{cur.edge}, out...)
	}
	return out
}

// DeprecationChain follows DEPRECATES/UPDATES/REPLACES/SUPERSEDES edges
// outgoing from belief (the deprecating direction per
// RelationshipType.IsDeprecating), up to maxDepth hops.
func (q *Query) DeprecationChain(ctx context.Context, belief domain.BeliefID, agent domain.AgentID, maxDepth int) ([]domain.Relationship, error) {
	var chain []domain.Relationship
	current := belief
	visited := map[domain.BeliefID]bool{current: true}

	for depth := 0; depth < maxDepth; depth++ {
		edges, err := q.relationships.Outgoing(ctx, current, agent)
		if err != nil {
			return nil, err
		}
		var next *domain.Relationship
		for i := range edges {
			if edges[i].Type.IsDeprecating() && !visited[edges[i].TargetBeliefID] {
				next = &edges[i]
				break
			}
		}
		if next == nil {
			break
		}
		chain = append(chain, *next)
		visited[next.TargetBeliefID] = true
		current = next.TargetBeliefID
	}
	return chain, nil
}

// DeprecatedBeliefIDs lists beliefs that are the target of at least one
// deprecating relationship (the belief a DEPRECATES/UPDATES/REPLACES/
// SUPERSEDES edge's source has superseded), capped at limit (0 =
// unlimited).
func (q *Query) DeprecatedBeliefIDs(ctx context.Context, agent domain.AgentID, limit int) ([]domain.BeliefID, error) {
	all, err := q.relationships.All(ctx, agent)
	if err != nil {
		return nil, err
	}
	seen := map[domain.BeliefID]bool{}
	var out []domain.BeliefID
	for _, r := range all {
		if r.Type.IsDeprecating() && !seen[r.TargetBeliefID] {
			seen[r.TargetBeliefID] = true
			out = append(out, r.TargetBeliefID)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// SupersedingBeliefIDs lists the beliefs that directly deprecate belief.
func (q *Query) SupersedingBeliefIDs(ctx context.Context, belief domain.BeliefID, agent domain.AgentID) ([]domain.BeliefID, error) {
	incoming, err := q.relationships.Incoming(ctx, belief, agent)
	if err != nil {
		return nil, err
	}
	var out []domain.BeliefID
	for _, r := range incoming {
		if r.Type.IsDeprecating() {
			out = append(out, r.SourceBeliefID)
		}
	}
	return out, nil
}
