package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/graph"
	"github.com/savantly-net/headkey/internal/ports"
)

const agent = domain.AgentID("agent-1")

func belief(id string) domain.Belief {
	return domain.Belief{ID: domain.BeliefID(id), AgentID: agent, Statement: id, Confidence: 0.7, Active: true, Version: 1}
}

func rel(id, src, dst string, t domain.RelationshipType) domain.Relationship {
	return domain.Relationship{ID: domain.RelationshipID(id), AgentID: agent, SourceBeliefID: domain.BeliefID(src), TargetBeliefID: domain.BeliefID(dst), Type: t, Strength: 0.9, Active: true}
}

// chain: a -> b -> c -> d
func chainGraph() *graph.Query {
	beliefs := newFakeBeliefStore(belief("a"), belief("b"), belief("c"), belief("d"))
	rels := newFakeRelationshipStore(
		rel("r1", "a", "b", domain.RelSupports),
		rel("r2", "b", "c", domain.RelSupports),
		rel("r3", "c", "d", domain.RelSupports),
	)
	return graph.New(beliefs, rels)
}

func TestConnectedOutgoing(t *testing.T) {
	q := chainGraph()
	out, err := q.Connected(context.Background(), "a", agent, ports.DirOutgoing, nil, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.BeliefID("b"), out[0].ID)
}

func TestDegree(t *testing.T) {
	q := chainGraph()
	deg, err := q.Degree(context.Background(), "b", agent, ports.DirBoth)
	require.NoError(t, err)
	assert.Equal(t, 2, deg)
}

func TestDirectlyConnected(t *testing.T) {
	q := chainGraph()
	ok, err := q.DirectlyConnected(context.Background(), "a", "b", agent, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.DirectlyConnected(context.Background(), "a", "d", agent, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReachable(t *testing.T) {
	q := chainGraph()
	ids, err := q.Reachable(context.Background(), "a", agent, 5, ports.DirOutgoing, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.BeliefID{"b", "c", "d"}, ids)

	ids, err = q.Reachable(context.Background(), "a", agent, 1, ports.DirOutgoing, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.BeliefID{"b"}, ids)
}

func TestShortestPath(t *testing.T) {
	q := chainGraph()
	path, err := q.ShortestPath(context.Background(), "a", "d", agent, 5)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, domain.BeliefID("a"), path[0].SourceBeliefID)
	assert.Equal(t, domain.BeliefID("d"), path[2].TargetBeliefID)
}

func TestShortestPathUnreachable(t *testing.T) {
	q := chainGraph()
	path, err := q.ShortestPath(context.Background(), "d", "a", agent, 1)
	require.NoError(t, err)
	assert.Nil(t, path)
}

func TestDeprecationChain(t *testing.T) {
	// v3 (latest) deprecates v2, which in turn deprecates v1 (oldest):
	// the chain walks forward from the superseding belief to what it
	// supersedes.
	beliefs := newFakeBeliefStore(belief("v3"), belief("v2"), belief("v1"))
	rels := newFakeRelationshipStore(
		rel("d1", "v3", "v2", domain.RelDeprecates),
		rel("d2", "v2", "v1", domain.RelDeprecates),
	)
	q := graph.New(beliefs, rels)

	chain, err := q.DeprecationChain(context.Background(), "v3", agent, 5)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, domain.BeliefID("v1"), chain[1].TargetBeliefID)
}

func TestDeprecatedBeliefIDsAndSuperseding(t *testing.T) {
	beliefs := newFakeBeliefStore(belief("old"), belief("new"))
	rels := newFakeRelationshipStore(rel("d1", "new", "old", domain.RelSupersedes))
	q := graph.New(beliefs, rels)

	deprecated, err := q.DeprecatedBeliefIDs(context.Background(), agent, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.BeliefID{"old"}, deprecated)

	superseding, err := q.SupersedingBeliefIDs(context.Background(), "old", agent)
	require.NoError(t, err)
	assert.Equal(t, []domain.BeliefID{"new"}, superseding)
}

func TestSnapshot(t *testing.T) {
	q := chainGraph()
	snap, err := q.Snapshot(context.Background(), agent, true)
	require.NoError(t, err)
	assert.Len(t, snap.Beliefs, 4)
	assert.Len(t, snap.Relationships, 3)
	assert.True(t, snap.Closed())
}

func TestFilteredSnapshot(t *testing.T) {
	q := chainGraph()
	snap, err := q.FilteredSnapshot(context.Background(), agent, []domain.BeliefID{"a", "b"}, nil, 0)
	require.NoError(t, err)
	assert.Len(t, snap.Beliefs, 2)
	require.Len(t, snap.Relationships, 1)
	assert.Equal(t, domain.BeliefID("a"), snap.Relationships[0].SourceBeliefID)
}

func TestStatistics(t *testing.T) {
	q := chainGraph()
	stats, err := q.Statistics(context.Background(), agent)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalBeliefs)
	assert.Equal(t, 3, stats.TotalRelationships)
	assert.InDelta(t, 0.75, stats.Density, 1e-9)
}

func TestAverageRelationshipStrength(t *testing.T) {
	q := chainGraph()
	avg, err := q.AverageRelationshipStrength(context.Background(), agent, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, avg, 1e-9)
}
