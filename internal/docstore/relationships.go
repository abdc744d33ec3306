package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
	"github.com/savantly-net/headkey/internal/queryutil"
	"github.com/savantly-net/headkey/internal/relationship"
)

// RelationshipStore implements ports.RelationshipStore over Qdrant, one
// collection per agent, paired with the agent's belief collection so
// ValidateEndpoints can check belief presence before linking (spec §4.5).
type RelationshipStore struct {
	client  *qdrant.Client
	cfg     Config
	beliefs ports.BeliefStore
	indices *queryutil.IndexCache

	agentsMu sync.RWMutex
	agents   map[domain.AgentID]struct{}
}

var _ ports.RelationshipStore = (*RelationshipStore)(nil)

// NewRelationshipStore wraps an already-connected Qdrant client. beliefs is
// used to validate relationship endpoints exist before linking them.
func NewRelationshipStore(client *qdrant.Client, cfg Config, beliefs ports.BeliefStore) *RelationshipStore {
	return &RelationshipStore{
		client:  client,
		cfg:     cfg.withDefaults(),
		beliefs: beliefs,
		indices: queryutil.NewIndexCache(),
		agents:  make(map[domain.AgentID]struct{}),
	}
}

func (s *RelationshipStore) collectionFor(agent domain.AgentID) string {
	return CollectionName(DefaultRelationshipPrefix, string(agent), s.cfg.VersionSuffix)
}

func (s *RelationshipStore) rememberAgent(agent domain.AgentID) {
	s.agentsMu.Lock()
	s.agents[agent] = struct{}{}
	s.agentsMu.Unlock()
}

func (s *RelationshipStore) knownAgents() []domain.AgentID {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	out := make([]domain.AgentID, 0, len(s.agents))
	for a := range s.agents {
		out = append(out, a)
	}
	return out
}

func (s *RelationshipStore) ensureCollection(ctx context.Context, agent domain.AgentID) error {
	name := s.collectionFor(agent)
	return s.indices.EnsureExists(name, func() error {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("docstore: check relationship collection exists: %w", err)
		}
		if exists {
			return nil
		}
		if !s.cfg.AutoCreateIndices {
			return fmt.Errorf("docstore: relationship collection %q does not exist and auto-create is disabled", name)
		}
		if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig:  qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: 1, Distance: qdrant.Distance_Cosine}),
		}); err != nil {
			return fmt.Errorf("docstore: create relationship collection %q: %w", name, err)
		}
		keywordType := qdrant.FieldType_FieldTypeKeyword
		for _, field := range []string{"source_belief_id", "target_belief_id", "type"} {
			if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: name,
				FieldName:      field,
				FieldType:      &keywordType,
			}); err != nil {
				return fmt.Errorf("docstore: create index on %q: %w", field, err)
			}
		}
		return nil
	}, isAlreadyExists)
}

func relationshipPayload(r domain.Relationship) map[string]any {
	payload := map[string]any{
		"agent_id":          string(r.AgentID),
		"source_belief_id":  string(r.SourceBeliefID),
		"target_belief_id":  string(r.TargetBeliefID),
		"type":              string(r.Type),
		"strength":          r.Strength,
		"active":            r.Active,
		"created_at_unix":   float64(r.CreatedAt.Unix()),
		"last_updated_unix": float64(r.LastUpdated.Unix()),
	}
	if r.EffectiveFrom != nil {
		payload["effective_from_unix"] = float64(r.EffectiveFrom.Unix())
	}
	if r.EffectiveUntil != nil {
		payload["effective_until_unix"] = float64(r.EffectiveUntil.Unix())
	}
	if r.DeprecationReason != nil {
		payload["deprecation_reason"] = *r.DeprecationReason
	}
	for k, v := range r.Metadata {
		payload["meta_"+k] = v
	}
	return payload
}

func relationshipFromPayload(id string, payload map[string]*qdrant.Value) domain.Relationship {
	r := domain.Relationship{
		ID:             domain.RelationshipID(id),
		AgentID:        domain.AgentID(valueString(payload, "agent_id")),
		SourceBeliefID: domain.BeliefID(valueString(payload, "source_belief_id")),
		TargetBeliefID: domain.BeliefID(valueString(payload, "target_belief_id")),
		Type:           domain.RelationshipType(valueString(payload, "type")),
		Strength:       valueFloat(payload, "strength"),
		Active:         valueBool(payload, "active"),
		CreatedAt:      time.Unix(int64(valueFloat(payload, "created_at_unix")), 0).UTC(),
		LastUpdated:    time.Unix(int64(valueFloat(payload, "last_updated_unix")), 0).UTC(),
	}
	if _, ok := payload["effective_from_unix"]; ok {
		t := time.Unix(int64(valueFloat(payload, "effective_from_unix")), 0).UTC()
		r.EffectiveFrom = &t
	}
	if _, ok := payload["effective_until_unix"]; ok {
		t := time.Unix(int64(valueFloat(payload, "effective_until_unix")), 0).UTC()
		r.EffectiveUntil = &t
	}
	if reason := valueString(payload, "deprecation_reason"); reason != "" {
		r.DeprecationReason = &reason
	}
	for k, v := range payload {
		if len(k) > 5 && k[:5] == "meta_" {
			if r.Metadata == nil {
				r.Metadata = map[string]any{}
			}
			r.Metadata[k[5:]] = valueToAny(v)
		}
	}
	return r
}

func (s *RelationshipStore) put(ctx context.Context, r domain.Relationship) error {
	if err := s.ensureCollection(ctx, r.AgentID); err != nil {
		return err
	}
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(string(r.ID)),
		Vectors: qdrant.NewVectorsDense([]float32{0}),
		Payload: qdrant.NewValueMap(relationshipPayload(r)),
	}
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionFor(r.AgentID),
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	}); err != nil {
		return err
	}
	s.rememberAgent(r.AgentID)
	return nil
}

// Create links src to dst, validating both beliefs exist and belong to
// agent first (spec §4.5).
func (s *RelationshipStore) Create(ctx context.Context, src, dst domain.BeliefID, t domain.RelationshipType, strength float64, agent domain.AgentID, metadata map[string]any) (domain.Relationship, error) {
	if err := relationship.ValidateEndpoints(ctx, s.beliefs, agent, src, dst); err != nil {
		return domain.Relationship{}, err
	}
	r := domain.NewRelationship(agent, src, dst, t, strength, metadata)
	if err := s.put(ctx, r); err != nil {
		return domain.Relationship{}, domain.NewError("docstore: create relationship", domain.ErrKindBackendUnavailable, err)
	}
	return r, nil
}

// CreateTemporal is Create plus an explicit effective window, rejecting a
// window whose end precedes its start (spec §3 temporal-order invariant).
func (s *RelationshipStore) CreateTemporal(ctx context.Context, src, dst domain.BeliefID, t domain.RelationshipType, strength float64, agent domain.AgentID, metadata map[string]any, effectiveFrom time.Time, effectiveUntil *time.Time) (domain.Relationship, error) {
	if !domain.ValidTemporalOrder(&effectiveFrom, effectiveUntil) {
		return domain.Relationship{}, domain.NewError("docstore: create temporal relationship", domain.ErrKindTemporalInvalid, nil)
	}
	r, err := s.Create(ctx, src, dst, t, strength, agent, metadata)
	if err != nil {
		return domain.Relationship{}, err
	}
	r.EffectiveFrom = &effectiveFrom
	r.EffectiveUntil = effectiveUntil
	if err := s.put(ctx, r); err != nil {
		return domain.Relationship{}, domain.NewError("docstore: create temporal relationship", domain.ErrKindBackendUnavailable, err)
	}
	return r, nil
}

// Deprecate links oldID to newID with a deprecating relationship type,
// recording reason (spec §3's deprecation-chain support).
func (s *RelationshipStore) Deprecate(ctx context.Context, oldID, newID domain.BeliefID, reason string, agent domain.AgentID) (domain.Relationship, error) {
	r, err := s.Create(ctx, oldID, newID, domain.RelDeprecates, 1.0, agent, nil)
	if err != nil {
		return domain.Relationship{}, err
	}
	r.DeprecationReason = &reason
	if err := s.put(ctx, r); err != nil {
		return domain.Relationship{}, domain.NewError("docstore: deprecate", domain.ErrKindBackendUnavailable, err)
	}
	return r, nil
}

// Get retrieves a relationship by ID within agent's collection.
func (s *RelationshipStore) Get(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (*domain.Relationship, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collectionFor(agent),
		Ids:            []*qdrant.PointId{qdrant.NewID(string(id))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, domain.NewError("docstore: get relationship", domain.ErrKindBackendUnavailable, err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	r := relationshipFromPayload(points[0].Id.GetUuid(), points[0].Payload)
	return &r, nil
}

// UpdateStrength clamps and persists a new strength for an existing relationship.
func (s *RelationshipStore) UpdateStrength(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, newStrength float64) (domain.Relationship, error) {
	r, err := s.Get(ctx, id, agent)
	if err != nil {
		return domain.Relationship{}, err
	}
	if r == nil {
		return domain.Relationship{}, domain.NewError("docstore: update strength", domain.ErrKindNotFound, nil)
	}
	r.Strength = domain.ClampStrength(newStrength)
	r.LastUpdated = time.Now().UTC()
	if err := s.put(ctx, *r); err != nil {
		return domain.Relationship{}, domain.NewError("docstore: update strength", domain.ErrKindBackendUnavailable, err)
	}
	return *r, nil
}

// Update applies an optional strength and/or metadata patch.
func (s *RelationshipStore) Update(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, strength *float64, metadata map[string]any) (domain.Relationship, error) {
	r, err := s.Get(ctx, id, agent)
	if err != nil {
		return domain.Relationship{}, err
	}
	if r == nil {
		return domain.Relationship{}, domain.NewError("docstore: update relationship", domain.ErrKindNotFound, nil)
	}
	if strength != nil {
		r.Strength = domain.ClampStrength(*strength)
	}
	if metadata != nil {
		r.Metadata = metadata
	}
	r.LastUpdated = time.Now().UTC()
	if err := s.put(ctx, *r); err != nil {
		return domain.Relationship{}, domain.NewError("docstore: update relationship", domain.ErrKindBackendUnavailable, err)
	}
	return *r, nil
}

func (s *RelationshipStore) setActive(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, active bool) (bool, error) {
	r, err := s.Get(ctx, id, agent)
	if err != nil {
		return false, err
	}
	if r == nil {
		return false, nil
	}
	r.Active = active
	if err := s.put(ctx, *r); err != nil {
		return false, domain.NewError("docstore: set relationship active", domain.ErrKindBackendUnavailable, err)
	}
	return true, nil
}

// Deactivate marks a relationship inactive without deleting it.
func (s *RelationshipStore) Deactivate(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (bool, error) {
	return s.setActive(ctx, id, agent, false)
}

// Reactivate marks a previously deactivated relationship active again.
func (s *RelationshipStore) Reactivate(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (bool, error) {
	return s.setActive(ctx, id, agent, true)
}

func (s *RelationshipStore) scrollAll(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	name := s.collectionFor(agent)
	const pageSize = 256
	var out []domain.Relationship
	var offset *qdrant.PointId
	for {
		resp, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Limit:          qdrant.PtrOf(uint32(pageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("docstore: scroll relationships %q: %w", name, err)
		}
		for _, p := range resp {
			out = append(out, relationshipFromPayload(p.Id.GetUuid(), p.Payload))
		}
		if len(resp) < pageSize {
			return out, nil
		}
		offset = resp[len(resp)-1].Id
	}
}

// ForBelief returns every relationship touching id, either end.
func (s *RelationshipStore) ForBelief(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: for belief", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.SourceBeliefID == id || r.TargetBeliefID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

// Outgoing returns relationships where id is the source.
func (s *RelationshipStore) Outgoing(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: outgoing", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.SourceBeliefID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

// Incoming returns relationships where id is the target.
func (s *RelationshipStore) Incoming(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: incoming", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.TargetBeliefID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

// Between returns relationships directed from src to dst.
func (s *RelationshipStore) Between(ctx context.Context, src, dst domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: between", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.SourceBeliefID == src && r.TargetBeliefID == dst {
			out = append(out, r)
		}
	}
	return out, nil
}

// ByType filters relationships by type.
func (s *RelationshipStore) ByType(ctx context.Context, t domain.RelationshipType, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: by type", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out, nil
}

// ByStrengthGTE filters relationships at or above threshold.
func (s *RelationshipStore) ByStrengthGTE(ctx context.Context, threshold float64, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: by strength", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.Strength >= threshold {
			out = append(out, r)
		}
	}
	return out, nil
}

// EffectiveAt filters relationships currently effective at the given instant.
func (s *RelationshipStore) EffectiveAt(ctx context.Context, at time.Time, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: effective at", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.IsCurrentlyEffective(at) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ExpiredBefore filters relationships whose EffectiveUntil is before at.
func (s *RelationshipStore) ExpiredBefore(ctx context.Context, at time.Time, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: expired before", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.EffectiveUntil != nil && r.EffectiveUntil.Before(at) {
			out = append(out, r)
		}
	}
	return out, nil
}

// All returns every relationship for agent.
func (s *RelationshipStore) All(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: all relationships", domain.ErrKindBackendUnavailable, err)
	}
	return all, nil
}

// Count returns the number of relationships for agent.
func (s *RelationshipStore) Count(ctx context.Context, agent domain.AgentID) (int, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return 0, domain.NewError("docstore: count relationships", domain.ErrKindBackendUnavailable, err)
	}
	return len(all), nil
}

// TypeDistribution aggregates relationship counts by type.
func (s *RelationshipStore) TypeDistribution(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]int, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: type distribution", domain.ErrKindBackendUnavailable, err)
	}
	return queryutil.Aggregate(all, func(r domain.Relationship) domain.RelationshipType { return r.Type }), nil
}

// AvgStrengthByType averages Strength grouped by type.
func (s *RelationshipStore) AvgStrengthByType(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]float64, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: avg strength by type", domain.ErrKindBackendUnavailable, err)
	}
	return queryutil.AggregateAvg(all, func(r domain.Relationship) domain.RelationshipType { return r.Type }, func(r domain.Relationship) float64 { return r.Strength }), nil
}

// belief existence lookup used by Orphans: reports which of ids have no
// stored belief, via ports.BeliefStore.GetMany (which takes no agent).
func (s *RelationshipStore) missingBeliefs(ctx context.Context, ids []domain.BeliefID) (map[domain.BeliefID]bool, error) {
	found, err := s.beliefs.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	present := make(map[domain.BeliefID]bool, len(found))
	for _, b := range found {
		present[b.ID] = true
	}
	missing := make(map[domain.BeliefID]bool)
	for _, id := range ids {
		if !present[id] {
			missing[id] = true
		}
	}
	return missing, nil
}

// Orphans returns relationships whose source or target belief no longer
// exists (spec §8's structural-validity property).
func (s *RelationshipStore) Orphans(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: orphans", domain.ErrKindBackendUnavailable, err)
	}
	idSet := map[domain.BeliefID]struct{}{}
	for _, r := range all {
		idSet[r.SourceBeliefID] = struct{}{}
		idSet[r.TargetBeliefID] = struct{}{}
	}
	ids := make([]domain.BeliefID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	missing, err := s.missingBeliefs(ctx, ids)
	if err != nil {
		return nil, domain.NewError("docstore: orphans", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if missing[r.SourceBeliefID] || missing[r.TargetBeliefID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// SelfRefs returns relationships whose source and target are the same belief.
func (s *RelationshipStore) SelfRefs(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: self refs", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.SourceBeliefID == r.TargetBeliefID {
			out = append(out, r)
		}
	}
	return out, nil
}

// TemporallyInvalid returns relationships whose effective window is inverted.
func (s *RelationshipStore) TemporallyInvalid(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: temporally invalid", domain.ErrKindBackendUnavailable, err)
	}
	var out []domain.Relationship
	for _, r := range all {
		if !domain.ValidTemporalOrder(r.EffectiveFrom, r.EffectiveUntil) {
			out = append(out, r)
		}
	}
	return out, nil
}

// BulkCreate validates and writes a batch of already-constructed relationships.
func (s *RelationshipStore) BulkCreate(ctx context.Context, relationships []domain.Relationship) ([]domain.Relationship, error) {
	out := make([]domain.Relationship, 0, len(relationships))
	for _, r := range relationships {
		if err := relationship.ValidateEndpoints(ctx, s.beliefs, r.AgentID, r.SourceBeliefID, r.TargetBeliefID); err != nil {
			return out, err
		}
		if err := s.put(ctx, r); err != nil {
			return out, domain.NewError("docstore: bulk create", domain.ErrKindBackendUnavailable, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// findRelByID scans every known agent's collection for id.
func (s *RelationshipStore) findRelByID(ctx context.Context, id domain.RelationshipID) (domain.AgentID, *domain.Relationship, error) {
	for _, agent := range s.knownAgents() {
		r, err := s.Get(ctx, id, agent)
		if err != nil {
			return "", nil, err
		}
		if r != nil {
			return agent, r, nil
		}
	}
	return "", nil, nil
}

// SetStrengthMany applies UpdateStrength to every listed relationship,
// resolving each one's owning agent via the in-memory registry since the
// interface carries no agent parameter here.
func (s *RelationshipStore) SetStrengthMany(ctx context.Context, ids []domain.RelationshipID, newStrength float64) (int, error) {
	n := 0
	for _, id := range ids {
		agent, r, err := s.findRelByID(ctx, id)
		if err != nil || r == nil {
			continue
		}
		if _, err := s.UpdateStrength(ctx, id, agent, newStrength); err == nil {
			n++
		}
	}
	return n, nil
}

// DeactivateMany deactivates every listed relationship.
func (s *RelationshipStore) DeactivateMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	n := 0
	for _, id := range ids {
		agent, r, err := s.findRelByID(ctx, id)
		if err != nil || r == nil {
			continue
		}
		if ok, _ := s.Deactivate(ctx, id, agent); ok {
			n++
		}
	}
	return n, nil
}

// ReactivateMany reactivates every listed relationship.
func (s *RelationshipStore) ReactivateMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	n := 0
	for _, id := range ids {
		agent, r, err := s.findRelByID(ctx, id)
		if err != nil || r == nil {
			continue
		}
		if ok, _ := s.Reactivate(ctx, id, agent); ok {
			n++
		}
	}
	return n, nil
}

// DeleteMany deletes every listed relationship.
func (s *RelationshipStore) DeleteMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	n := 0
	for _, id := range ids {
		agent, r, err := s.findRelByID(ctx, id)
		if err != nil || r == nil {
			continue
		}
		_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.collectionFor(agent),
			Wait:           qdrant.PtrOf(true),
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(string(id))}},
				},
			},
		})
		if err == nil {
			n++
		}
	}
	return n, nil
}

// DeleteOldInactive deletes inactive relationships for agent whose
// LastUpdated is older than olderThanDays.
func (s *RelationshipStore) DeleteOldInactive(ctx context.Context, agent domain.AgentID, olderThanDays int) (int, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return 0, domain.NewError("docstore: delete old inactive", domain.ErrKindBackendUnavailable, err)
	}
	cutoffTime := timeNowMinusDays(olderThanDays)
	var toDelete []*qdrant.PointId
	for _, r := range all {
		if !r.Active && r.LastUpdated.Before(cutoffTime) {
			toDelete = append(toDelete, qdrant.NewID(string(r.ID)))
		}
	}
	if len(toDelete) == 0 {
		return 0, nil
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionFor(agent),
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: toDelete},
			},
		},
	})
	if err != nil {
		return 0, domain.NewError("docstore: delete old inactive", domain.ErrKindBackendUnavailable, err)
	}
	return len(toDelete), nil
}

func timeNowMinusDays(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}
