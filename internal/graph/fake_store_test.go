package graph_test

import (
	"context"
	"time"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
)

// fakeBeliefStore and fakeRelationshipStore are minimal in-memory
// implementations of the storage ports, sized only to exercise
// internal/graph's read-only composition logic without a live backend.

type fakeBeliefStore struct {
	beliefs map[domain.BeliefID]domain.Belief
}

func newFakeBeliefStore(beliefs ...domain.Belief) *fakeBeliefStore {
	s := &fakeBeliefStore{beliefs: map[domain.BeliefID]domain.Belief{}}
	for _, b := range beliefs {
		s.beliefs[b.ID] = b
	}
	return s
}

var _ ports.BeliefStore = (*fakeBeliefStore)(nil)

func (s *fakeBeliefStore) Put(ctx context.Context, b domain.Belief) (domain.Belief, error) {
	s.beliefs[b.ID] = b
	return b, nil
}

func (s *fakeBeliefStore) PutMany(ctx context.Context, beliefs []domain.Belief) ([]domain.Belief, error) {
	for _, b := range beliefs {
		s.beliefs[b.ID] = b
	}
	return beliefs, nil
}

func (s *fakeBeliefStore) Get(ctx context.Context, id domain.BeliefID) (*domain.Belief, error) {
	b, ok := s.beliefs[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *fakeBeliefStore) GetMany(ctx context.Context, ids []domain.BeliefID) ([]domain.Belief, error) {
	var out []domain.Belief
	for _, id := range ids {
		if b, ok := s.beliefs[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeBeliefStore) Delete(ctx context.Context, id domain.BeliefID) (bool, error) {
	if _, ok := s.beliefs[id]; !ok {
		return false, nil
	}
	delete(s.beliefs, id)
	return true, nil
}

func (s *fakeBeliefStore) ForAgent(ctx context.Context, agent domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	var out []domain.Belief
	for _, b := range s.beliefs {
		if b.AgentID != agent {
			continue
		}
		if !includeInactive && !b.Active {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *fakeBeliefStore) InCategory(ctx context.Context, category string, agent *domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	return nil, nil
}

func (s *fakeBeliefStore) LowConfidence(ctx context.Context, threshold float64, agent *domain.AgentID) ([]domain.Belief, error) {
	return nil, nil
}

func (s *fakeBeliefStore) SearchText(ctx context.Context, query string, agent *domain.AgentID, limit int) ([]domain.Belief, error) {
	return nil, nil
}

func (s *fakeBeliefStore) FindSimilar(ctx context.Context, statement string, agent *domain.AgentID, threshold float64, limit int) ([]ports.SimilarBelief, error) {
	return nil, nil
}

func (s *fakeBeliefStore) PutConflict(ctx context.Context, c domain.BeliefConflict) (domain.BeliefConflict, error) {
	return c, nil
}
func (s *fakeBeliefStore) GetConflict(ctx context.Context, id domain.ConflictID) (*domain.BeliefConflict, error) {
	return nil, nil
}
func (s *fakeBeliefStore) Unresolved(ctx context.Context, agent *domain.AgentID) ([]domain.BeliefConflict, error) {
	return nil, nil
}
func (s *fakeBeliefStore) RemoveConflict(ctx context.Context, id domain.ConflictID) (bool, error) {
	return false, nil
}

func (s *fakeBeliefStore) Count(ctx context.Context, agent *domain.AgentID, includeInactive bool) (int, error) {
	beliefs, err := s.ForAgent(ctx, *agent, includeInactive)
	return len(beliefs), err
}

func (s *fakeBeliefStore) DistributionByCategory(ctx context.Context, agent *domain.AgentID) (map[string]int, error) {
	return nil, nil
}
func (s *fakeBeliefStore) DistributionByConfidenceBucket(ctx context.Context, agent *domain.AgentID) (ports.ConfidenceDistribution, error) {
	return nil, nil
}
func (s *fakeBeliefStore) DistinctAgents(ctx context.Context) ([]domain.AgentID, error) {
	return nil, nil
}
func (s *fakeBeliefStore) Healthy(ctx context.Context) error { return nil }

type fakeRelationshipStore struct {
	rels map[domain.RelationshipID]domain.Relationship
}

func newFakeRelationshipStore(rels ...domain.Relationship) *fakeRelationshipStore {
	s := &fakeRelationshipStore{rels: map[domain.RelationshipID]domain.Relationship{}}
	for _, r := range rels {
		s.rels[r.ID] = r
	}
	return s
}

var _ ports.RelationshipStore = (*fakeRelationshipStore)(nil)

func (s *fakeRelationshipStore) Create(ctx context.Context, src, dst domain.BeliefID, t domain.RelationshipType, strength float64, agent domain.AgentID, metadata map[string]any) (domain.Relationship, error) {
	r := domain.Relationship{ID: domain.RelationshipID(string(src) + "->" + string(dst)), AgentID: agent, SourceBeliefID: src, TargetBeliefID: dst, Type: t, Strength: strength, Active: true, Metadata: metadata}
	s.rels[r.ID] = r
	return r, nil
}

func (s *fakeRelationshipStore) CreateTemporal(ctx context.Context, src, dst domain.BeliefID, t domain.RelationshipType, strength float64, agent domain.AgentID, metadata map[string]any, effectiveFrom time.Time, effectiveUntil *time.Time) (domain.Relationship, error) {
	return s.Create(ctx, src, dst, t, strength, agent, metadata)
}

func (s *fakeRelationshipStore) Deprecate(ctx context.Context, oldID, newID domain.BeliefID, reason string, agent domain.AgentID) (domain.Relationship, error) {
	return s.Create(ctx, oldID, newID, domain.RelDeprecates, 1.0, agent, nil)
}

func (s *fakeRelationshipStore) Get(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (*domain.Relationship, error) {
	r, ok := s.rels[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *fakeRelationshipStore) UpdateStrength(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, newStrength float64) (domain.Relationship, error) {
	r := s.rels[id]
	r.Strength = domain.ClampStrength(newStrength)
	s.rels[id] = r
	return r, nil
}

func (s *fakeRelationshipStore) Update(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, strength *float64, metadata map[string]any) (domain.Relationship, error) {
	r := s.rels[id]
	if strength != nil {
		r.Strength = *strength
	}
	if metadata != nil {
		r.Metadata = metadata
	}
	s.rels[id] = r
	return r, nil
}

func (s *fakeRelationshipStore) Deactivate(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (bool, error) {
	r, ok := s.rels[id]
	if !ok {
		return false, nil
	}
	r.Active = false
	s.rels[id] = r
	return true, nil
}

func (s *fakeRelationshipStore) Reactivate(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (bool, error) {
	r, ok := s.rels[id]
	if !ok {
		return false, nil
	}
	r.Active = true
	s.rels[id] = r
	return true, nil
}

func (s *fakeRelationshipStore) ForBelief(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	var out []domain.Relationship
	for _, r := range s.rels {
		if r.SourceBeliefID == id || r.TargetBeliefID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRelationshipStore) Outgoing(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	var out []domain.Relationship
	for _, r := range s.rels {
		if r.SourceBeliefID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRelationshipStore) Incoming(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	var out []domain.Relationship
	for _, r := range s.rels {
		if r.TargetBeliefID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRelationshipStore) Between(ctx context.Context, src, dst domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	return nil, nil
}
func (s *fakeRelationshipStore) ByType(ctx context.Context, t domain.RelationshipType, agent domain.AgentID) ([]domain.Relationship, error) {
	return nil, nil
}
func (s *fakeRelationshipStore) ByStrengthGTE(ctx context.Context, threshold float64, agent domain.AgentID) ([]domain.Relationship, error) {
	return nil, nil
}
func (s *fakeRelationshipStore) EffectiveAt(ctx context.Context, at time.Time, agent domain.AgentID) ([]domain.Relationship, error) {
	return nil, nil
}
func (s *fakeRelationshipStore) ExpiredBefore(ctx context.Context, at time.Time, agent domain.AgentID) ([]domain.Relationship, error) {
	return nil, nil
}

func (s *fakeRelationshipStore) All(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	var out []domain.Relationship
	for _, r := range s.rels {
		if r.AgentID == agent {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRelationshipStore) Count(ctx context.Context, agent domain.AgentID) (int, error) {
	all, err := s.All(ctx, agent)
	return len(all), err
}

func (s *fakeRelationshipStore) TypeDistribution(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]int, error) {
	dist := map[domain.RelationshipType]int{}
	all, _ := s.All(ctx, agent)
	for _, r := range all {
		dist[r.Type]++
	}
	return dist, nil
}

func (s *fakeRelationshipStore) AvgStrengthByType(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]float64, error) {
	return nil, nil
}

func (s *fakeRelationshipStore) Orphans(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	return nil, nil
}
func (s *fakeRelationshipStore) SelfRefs(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	return nil, nil
}
func (s *fakeRelationshipStore) TemporallyInvalid(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	return nil, nil
}

func (s *fakeRelationshipStore) BulkCreate(ctx context.Context, relationships []domain.Relationship) ([]domain.Relationship, error) {
	for _, r := range relationships {
		s.rels[r.ID] = r
	}
	return relationships, nil
}
func (s *fakeRelationshipStore) SetStrengthMany(ctx context.Context, ids []domain.RelationshipID, newStrength float64) (int, error) {
	return 0, nil
}
func (s *fakeRelationshipStore) DeactivateMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	return 0, nil
}
func (s *fakeRelationshipStore) ReactivateMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	return 0, nil
}
func (s *fakeRelationshipStore) DeleteMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	return 0, nil
}
func (s *fakeRelationshipStore) DeleteOldInactive(ctx context.Context, agent domain.AgentID, olderThanDays int) (int, error) {
	return 0, nil
}
