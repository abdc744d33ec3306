package docstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/savantly-net/headkey/internal/domain"
)

const conflictPrefix = "headkey-conflict"

func (s *Store) conflictCollectionFor(agent domain.AgentID) string {
	return CollectionName(conflictPrefix, string(agent), s.cfg.VersionSuffix)
}

func (s *Store) ensureConflictCollection(ctx context.Context, agent domain.AgentID) error {
	name := s.conflictCollectionFor(agent)
	return s.indices.EnsureExists(name, func() error {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("docstore: check conflict collection exists: %w", err)
		}
		if exists {
			return nil
		}
		if !s.cfg.AutoCreateIndices {
			return fmt.Errorf("docstore: conflict collection %q does not exist and auto-create is disabled", name)
		}
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig:  qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: 1, Distance: qdrant.Distance_Cosine}),
		})
	}, isAlreadyExists)
}

func conflictPayload(c domain.BeliefConflict) map[string]any {
	ids := make([]any, len(c.ConflictingBeliefIDs))
	for i, id := range c.ConflictingBeliefIDs {
		ids[i] = string(id)
	}
	payload := map[string]any{
		"agent_id":      string(c.AgentID),
		"description":   c.Description,
		"resolved":      c.Resolved,
		"detected_unix": float64(c.DetectedAt.Unix()),
		"belief_ids":    ids,
	}
	if c.Resolution != nil {
		payload["resolution"] = *c.Resolution
	}
	return payload
}

func conflictFromPayload(id string, payload map[string]*qdrant.Value) domain.BeliefConflict {
	raw := valueStrings(payload, "belief_ids")
	ids := make([]domain.BeliefID, len(raw))
	for i, r := range raw {
		ids[i] = domain.BeliefID(r)
	}
	c := domain.BeliefConflict{
		ID:                   domain.ConflictID(id),
		AgentID:              domain.AgentID(valueString(payload, "agent_id")),
		ConflictingBeliefIDs: ids,
		Description:          valueString(payload, "description"),
		Resolved:             valueBool(payload, "resolved"),
	}
	if res := valueString(payload, "resolution"); res != "" {
		c.Resolution = &res
	}
	return c
}

// PutConflict stores or replaces a conflict record.
func (s *Store) PutConflict(ctx context.Context, c domain.BeliefConflict) (domain.BeliefConflict, error) {
	if err := s.ensureConflictCollection(ctx, c.AgentID); err != nil {
		return domain.BeliefConflict{}, domain.NewError("docstore: put conflict", domain.ErrKindBackendUnavailable, err)
	}
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(string(c.ID)),
		Vectors: qdrant.NewVectorsDense([]float32{0}),
		Payload: qdrant.NewValueMap(conflictPayload(c)),
	}
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.conflictCollectionFor(c.AgentID),
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	}); err != nil {
		return domain.BeliefConflict{}, domain.NewError("docstore: put conflict", domain.ErrKindBackendUnavailable, err)
	}
	s.rememberAgent(c.AgentID)
	return c, nil
}

// findConflictByID scans every known agent's conflict collection for id,
// mirroring findByID's resolution of the "no agent parameter" ambiguity.
func (s *Store) findConflictByID(ctx context.Context, id domain.ConflictID) (domain.AgentID, *domain.BeliefConflict, error) {
	want := []*qdrant.PointId{qdrant.NewID(string(id))}
	for _, agent := range s.knownAgents() {
		points, err := s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: s.conflictCollectionFor(agent),
			Ids:            want,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil || len(points) == 0 {
			continue
		}
		c := conflictFromPayload(points[0].Id.GetUuid(), points[0].Payload)
		return agent, &c, nil
	}
	return "", nil, nil
}

// GetConflict retrieves a conflict by ID.
func (s *Store) GetConflict(ctx context.Context, id domain.ConflictID) (*domain.BeliefConflict, error) {
	_, c, err := s.findConflictByID(ctx, id)
	if err != nil {
		return nil, domain.NewError("docstore: get conflict", domain.ErrKindBackendUnavailable, err)
	}
	return c, nil
}

// Unresolved lists every unresolved conflict for agent, or every known
// agent's conflicts when agent is nil.
func (s *Store) Unresolved(ctx context.Context, agent *domain.AgentID) ([]domain.BeliefConflict, error) {
	var out []domain.BeliefConflict
	for _, a := range s.agentsOrKnown(agent) {
		name := s.conflictCollectionFor(a)
		const pageSize = 256
		var offset *qdrant.PointId
		for {
			resp, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
				CollectionName: name,
				Limit:          qdrant.PtrOf(uint32(pageSize)),
				Offset:         offset,
				WithPayload:    qdrant.NewWithPayload(true),
			})
			if err != nil {
				return nil, domain.NewError("docstore: unresolved conflicts", domain.ErrKindBackendUnavailable, err)
			}
			for _, p := range resp {
				c := conflictFromPayload(p.Id.GetUuid(), p.Payload)
				if !c.Resolved {
					out = append(out, c)
				}
			}
			if len(resp) < pageSize {
				break
			}
			offset = resp[len(resp)-1].Id
		}
	}
	return out, nil
}

// RemoveConflict deletes a conflict record wherever it lives.
func (s *Store) RemoveConflict(ctx context.Context, id domain.ConflictID) (bool, error) {
	agent, c, err := s.findConflictByID(ctx, id)
	if err != nil {
		return false, domain.NewError("docstore: remove conflict", domain.ErrKindBackendUnavailable, err)
	}
	if c == nil {
		return false, nil
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.conflictCollectionFor(agent),
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(string(id))}},
			},
		},
	})
	if err != nil {
		return false, domain.NewError("docstore: remove conflict", domain.ErrKindBackendUnavailable, err)
	}
	return true, nil
}
