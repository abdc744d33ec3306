// Package graph implements ports.GraphQuery as a pure, read-only composition
// over a ports.BeliefStore and a ports.RelationshipStore — no storage of its
// own, grounded on the teacher's pattern of composing independent storage
// capabilities (internal/conflicts.Scorer composing search.CandidateFinder +
// storage.DB) rather than owning persistence directly.
package graph

import (
	"github.com/savantly-net/headkey/internal/ports"
)

var _ ports.GraphQuery = (*Query)(nil)

// Query composes a belief store and a relationship store into the read-only
// GraphQuery capability.
type Query struct {
	beliefs       ports.BeliefStore
	relationships ports.RelationshipStore
}

// New wires the two stores backing every GraphQuery operation.
func New(beliefs ports.BeliefStore, relationships ports.RelationshipStore) *Query {
	return &Query{beliefs: beliefs, relationships: relationships}
}
