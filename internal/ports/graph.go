package ports

import (
	"context"

	"github.com/savantly-net/headkey/internal/domain"
)

// Direction constrains which edges a connectivity query considers.
type Direction string

const (
	DirIncoming Direction = "incoming"
	DirOutgoing Direction = "outgoing"
	DirBoth     Direction = "both"
)

// ParseDirection is total over the three valid tokens.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirIncoming, DirOutgoing, DirBoth:
		return Direction(s), true
	default:
		return "", false
	}
}

// GraphStatistics summarizes a single agent's belief graph.
type GraphStatistics struct {
	TotalBeliefs           int
	ActiveBeliefs          int
	TotalRelationships     int
	ActiveRelationships    int
	DeprecatedBeliefCount  int
	Density                float64 // round(total_relationships/total_beliefs, 2)
}

// StructureValidation holds referential-integrity findings for an agent.
type StructureValidation struct {
	Orphans           []domain.Relationship
	SelfRefs          []domain.Relationship
	TemporallyInvalid []domain.Relationship
}

// GraphQuery is the read-only composition over BeliefStore + RelationshipStore.
// Implementations never issue writes.
type GraphQuery interface {
	Statistics(ctx context.Context, agent domain.AgentID) (GraphStatistics, error)
	TypeDistribution(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]int, error)

	// StreamBeliefs returns a finite, ordered sequence of beliefs for an
	// agent. pageSize is advisory: the internal/graph implementation fetches
	// all of the agent's beliefs in one call.
	StreamBeliefs(ctx context.Context, agent domain.AgentID, includeInactive bool, pageSize int) ([]domain.Belief, error)

	Connected(ctx context.Context, belief domain.BeliefID, agent domain.AgentID, dir Direction, types []domain.RelationshipType, limit int) ([]domain.Belief, error)
	Degree(ctx context.Context, belief domain.BeliefID, agent domain.AgentID, dir Direction) (int, error)
	DirectlyConnected(ctx context.Context, a, b domain.BeliefID, agent domain.AgentID, types []domain.RelationshipType) (bool, error)

	DeprecatedBeliefIDs(ctx context.Context, agent domain.AgentID, limit int) ([]domain.BeliefID, error)
	SupersedingBeliefIDs(ctx context.Context, belief domain.BeliefID, agent domain.AgentID) ([]domain.BeliefID, error)
	DeprecationChain(ctx context.Context, belief domain.BeliefID, agent domain.AgentID, maxDepth int) ([]domain.Relationship, error)

	Reachable(ctx context.Context, start domain.BeliefID, agent domain.AgentID, maxDepth int, dir Direction, types []domain.RelationshipType) ([]domain.BeliefID, error)
	ShortestPath(ctx context.Context, src, dst domain.BeliefID, agent domain.AgentID, maxDepth int) ([]domain.Relationship, error)

	ValidateStructure(ctx context.Context, agent domain.AgentID) (StructureValidation, error)
	MemoryUsageEstimate(ctx context.Context, agent domain.AgentID) (int64, error)
	AverageRelationshipStrength(ctx context.Context, agent domain.AgentID, includeInactive bool) (float64, error)

	Snapshot(ctx context.Context, agent domain.AgentID, includeInactive bool) (domain.Snapshot, error)
	FilteredSnapshot(ctx context.Context, agent domain.AgentID, beliefIDs []domain.BeliefID, types []domain.RelationshipType, maxBeliefs int) (domain.Snapshot, error)
	// ExportSnapshot materializes the snapshot value; format is an opaque
	// tag that is not used and not carried in the returned value.
	ExportSnapshot(ctx context.Context, agent domain.AgentID, format string) (domain.Snapshot, error)
}
