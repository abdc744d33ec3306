// Package ports defines the abstract operations each storage strategy
// (document/search-backed, relational-backed) must implement, plus the
// graph-query capability composed over them. Nothing in this package
// depends on a concrete backend.
package ports

import (
	"context"
	"time"

	"github.com/savantly-net/headkey/internal/domain"
)

// SimilarBelief pairs a belief with its computed similarity to a query
// statement, returned by FindSimilar.
type SimilarBelief struct {
	Belief     domain.Belief
	Similarity float64
}

// ConfidenceDistribution maps confidence bucket name to count.
type ConfidenceDistribution map[domain.ConfidenceBucket]int

// BeliefStore is the capability set every storage strategy must implement
// over the Belief and BeliefConflict entities, scoped per agent unless
// documented otherwise.
type BeliefStore interface {
	// Put upserts a belief: preserves CreatedAt if a record with this ID
	// already existed, bumps Version, and clamps Confidence.
	Put(ctx context.Context, b domain.Belief) (domain.Belief, error)
	PutMany(ctx context.Context, beliefs []domain.Belief) ([]domain.Belief, error)

	Get(ctx context.Context, id domain.BeliefID) (*domain.Belief, error)
	GetMany(ctx context.Context, ids []domain.BeliefID) ([]domain.Belief, error)
	Delete(ctx context.Context, id domain.BeliefID) (bool, error)

	// ForAgent returns all beliefs for an agent ordered by LastUpdated desc.
	ForAgent(ctx context.Context, agent domain.AgentID, includeInactive bool) ([]domain.Belief, error)
	InCategory(ctx context.Context, category string, agent *domain.AgentID, includeInactive bool) ([]domain.Belief, error)
	LowConfidence(ctx context.Context, threshold float64, agent *domain.AgentID) ([]domain.Belief, error)

	// SearchText performs a substring/token match over Statement, ranked by
	// confidence desc, capped at limit.
	SearchText(ctx context.Context, query string, agent *domain.AgentID, limit int) ([]domain.Belief, error)
	// FindSimilar ranks active candidates by similarity to statement. Both
	// implementations in this module use lowercased-token Jaccard overlap
	// only; stored embeddings are not used for similarity.
	FindSimilar(ctx context.Context, statement string, agent *domain.AgentID, threshold float64, limit int) ([]SimilarBelief, error)

	ConflictStore

	Count(ctx context.Context, agent *domain.AgentID, includeInactive bool) (int, error)
	DistributionByCategory(ctx context.Context, agent *domain.AgentID) (map[string]int, error)
	DistributionByConfidenceBucket(ctx context.Context, agent *domain.AgentID) (ConfidenceDistribution, error)
	DistinctAgents(ctx context.Context) ([]domain.AgentID, error)

	Healthy(ctx context.Context) error
}

// ConflictStore is the conflict CRUD subset of BeliefStore, declared as its
// own interface and embedded in BeliefStore. The pipeline reaches these
// methods through BeliefStore.
type ConflictStore interface {
	PutConflict(ctx context.Context, c domain.BeliefConflict) (domain.BeliefConflict, error)
	GetConflict(ctx context.Context, id domain.ConflictID) (*domain.BeliefConflict, error)
	Unresolved(ctx context.Context, agent *domain.AgentID) ([]domain.BeliefConflict, error)
	RemoveConflict(ctx context.Context, id domain.ConflictID) (bool, error)
}

// RelationshipStore is the capability set every storage strategy must
// implement over the BeliefRelationship entity.
type RelationshipStore interface {
	Create(ctx context.Context, src, dst domain.BeliefID, t domain.RelationshipType, strength float64, agent domain.AgentID, metadata map[string]any) (domain.Relationship, error)
	CreateTemporal(ctx context.Context, src, dst domain.BeliefID, t domain.RelationshipType, strength float64, agent domain.AgentID, metadata map[string]any, effectiveFrom time.Time, effectiveUntil *time.Time) (domain.Relationship, error)
	Deprecate(ctx context.Context, oldID, newID domain.BeliefID, reason string, agent domain.AgentID) (domain.Relationship, error)

	Get(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (*domain.Relationship, error)
	UpdateStrength(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, newStrength float64) (domain.Relationship, error)
	Update(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, strength *float64, metadata map[string]any) (domain.Relationship, error)

	Deactivate(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (bool, error)
	Reactivate(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (bool, error)

	ForBelief(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error)
	Outgoing(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error)
	Incoming(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error)
	Between(ctx context.Context, src, dst domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error)
	ByType(ctx context.Context, t domain.RelationshipType, agent domain.AgentID) ([]domain.Relationship, error)
	ByStrengthGTE(ctx context.Context, threshold float64, agent domain.AgentID) ([]domain.Relationship, error)
	EffectiveAt(ctx context.Context, at time.Time, agent domain.AgentID) ([]domain.Relationship, error)
	ExpiredBefore(ctx context.Context, at time.Time, agent domain.AgentID) ([]domain.Relationship, error)
	All(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error)

	Count(ctx context.Context, agent domain.AgentID) (int, error)
	TypeDistribution(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]int, error)
	AvgStrengthByType(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]float64, error)

	Orphans(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error)
	SelfRefs(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error)
	TemporallyInvalid(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error)

	BulkCreate(ctx context.Context, relationships []domain.Relationship) ([]domain.Relationship, error)
	SetStrengthMany(ctx context.Context, ids []domain.RelationshipID, newStrength float64) (int, error)
	DeactivateMany(ctx context.Context, ids []domain.RelationshipID) (int, error)
	ReactivateMany(ctx context.Context, ids []domain.RelationshipID) (int, error)
	DeleteMany(ctx context.Context, ids []domain.RelationshipID) (int, error)
	DeleteOldInactive(ctx context.Context, agent domain.AgentID, olderThanDays int) (int, error)
}
