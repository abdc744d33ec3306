// Package domain holds the core belief/relationship/conflict data model:
// types, identity, invariants, and construction functions. Nothing in this
// package talks to a backend.
package domain

import "github.com/google/uuid"

// AgentID scopes every belief and relationship to one owning agent.
type AgentID string

// BeliefID uniquely identifies a belief for all time within its agent.
type BeliefID string

// RelationshipID uniquely identifies a directed edge between two beliefs.
type RelationshipID string

// ConflictID uniquely identifies a recorded tension between beliefs.
type ConflictID string

// NewBeliefID mints a fresh, globally unique belief id.
func NewBeliefID() BeliefID {
	return BeliefID(uuid.New().String())
}

// NewRelationshipID mints a fresh, globally unique relationship id. Kept as
// a bare UUID string (not a "rel_"-prefixed one) since the document backend
// uses it directly as a Qdrant point ID, which must be an unsigned integer
// or a valid UUID.
func NewRelationshipID() RelationshipID {
	return RelationshipID(uuid.New().String())
}

// NewConflictID mints a fresh conflict id.
func NewConflictID() ConflictID {
	return ConflictID(uuid.New().String())
}
