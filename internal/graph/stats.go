package graph

import (
	"context"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
)

// Statistics computes the aggregate counts and density for agent's graph.
// Density is relationships-per-belief, rounded to two decimal places.
func (q *Query) Statistics(ctx context.Context, agent domain.AgentID) (ports.GraphStatistics, error) {
	totalBeliefs, err := q.beliefs.Count(ctx, &agent, true)
	if err != nil {
		return ports.GraphStatistics{}, err
	}
	activeBeliefs, err := q.beliefs.Count(ctx, &agent, false)
	if err != nil {
		return ports.GraphStatistics{}, err
	}
	totalRelationships, err := q.relationships.Count(ctx, agent)
	if err != nil {
		return ports.GraphStatistics{}, err
	}
	all, err := q.relationships.All(ctx, agent)
	if err != nil {
		return ports.GraphStatistics{}, err
	}
	activeRelationships := 0
	for _, r := range all {
		if r.Active {
			activeRelationships++
		}
	}
	deprecated, err := q.DeprecatedBeliefIDs(ctx, agent, 0)
	if err != nil {
		return ports.GraphStatistics{}, err
	}

	density := 0.0
	if totalBeliefs > 0 {
		density = roundTo2(float64(totalRelationships) / float64(totalBeliefs))
	}

	return ports.GraphStatistics{
		TotalBeliefs:          totalBeliefs,
		ActiveBeliefs:         activeBeliefs,
		TotalRelationships:    totalRelationships,
		ActiveRelationships:   activeRelationships,
		DeprecatedBeliefCount: len(deprecated),
		Density:               density,
	}, nil
}

func roundTo2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// TypeDistribution delegates to the relationship store's SQL-pushed
// aggregation.
func (q *Query) TypeDistribution(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]int, error) {
	return q.relationships.TypeDistribution(ctx, agent)
}

// StreamBeliefs returns every belief for agent; pageSize is advisory since
// no backing store exposes a cursor primitive, but is kept in the signature
// so callers and backends can add real cursoring without an interface
// change.
func (q *Query) StreamBeliefs(ctx context.Context, agent domain.AgentID, includeInactive bool, pageSize int) ([]domain.Belief, error) {
	return q.beliefs.ForAgent(ctx, agent, includeInactive)
}

// ValidateStructure composes the relationship store's three structural
// integrity scans into one report.
func (q *Query) ValidateStructure(ctx context.Context, agent domain.AgentID) (ports.StructureValidation, error) {
	orphans, err := q.relationships.Orphans(ctx, agent)
	if err != nil {
		return ports.StructureValidation{}, err
	}
	selfRefs, err := q.relationships.SelfRefs(ctx, agent)
	if err != nil {
		return ports.StructureValidation{}, err
	}
	invalid, err := q.relationships.TemporallyInvalid(ctx, agent)
	if err != nil {
		return ports.StructureValidation{}, err
	}
	return ports.StructureValidation{Orphans: orphans, SelfRefs: selfRefs, TemporallyInvalid: invalid}, nil
}

// MemoryUsageEstimate gives a rough byte estimate for agent's graph, summing
// a per-belief and per-relationship footprint constant. It is an estimate
// for capacity planning, not an exact accounting.
func (q *Query) MemoryUsageEstimate(ctx context.Context, agent domain.AgentID) (int64, error) {
	const bytesPerBelief = 1024
	const bytesPerRelationship = 512

	totalBeliefs, err := q.beliefs.Count(ctx, &agent, true)
	if err != nil {
		return 0, err
	}
	totalRelationships, err := q.relationships.Count(ctx, agent)
	if err != nil {
		return 0, err
	}
	return int64(totalBeliefs)*bytesPerBelief + int64(totalRelationships)*bytesPerRelationship, nil
}

// AverageRelationshipStrength averages Strength over agent's relationships,
// optionally including inactive ones.
func (q *Query) AverageRelationshipStrength(ctx context.Context, agent domain.AgentID, includeInactive bool) (float64, error) {
	all, err := q.relationships.All(ctx, agent)
	if err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for _, r := range all {
		if !includeInactive && !r.Active {
			continue
		}
		sum += r.Strength
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}
