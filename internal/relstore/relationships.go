package relstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
	"github.com/savantly-net/headkey/internal/relationship"
)

var _ ports.RelationshipStore = (*RelationshipStore)(nil)

const relationshipColumns = `id, agent_id, source_belief_id, target_belief_id, type, strength, active, created_at, last_updated, effective_from, effective_until, deprecation_reason, metadata`

// RelationshipStore implements ports.RelationshipStore over the relationship
// table, grounded on the same tx/WHERE-builder idiom as BeliefStore; unlike
// the document strategy, structural checks (Orphans/SelfRefs/TemporallyInvalid)
// are pushed into SQL here since both tables live in the same database.
type RelationshipStore struct {
	db      *DB
	beliefs ports.BeliefStore
}

// NewRelationshipStore wraps db, validating endpoints against beliefs on
// every create.
func NewRelationshipStore(db *DB, beliefs ports.BeliefStore) *RelationshipStore {
	return &RelationshipStore{db: db, beliefs: beliefs}
}

func scanRelationship(row pgx.Row) (domain.Relationship, error) {
	var r domain.Relationship
	var id, agentID, src, dst, typ string
	if err := row.Scan(&id, &agentID, &src, &dst, &typ, &r.Strength, &r.Active, &r.CreatedAt, &r.LastUpdated,
		&r.EffectiveFrom, &r.EffectiveUntil, &r.DeprecationReason, &r.Metadata); err != nil {
		return domain.Relationship{}, err
	}
	r.ID = domain.RelationshipID(id)
	r.AgentID = domain.AgentID(agentID)
	r.SourceBeliefID = domain.BeliefID(src)
	r.TargetBeliefID = domain.BeliefID(dst)
	r.Type = domain.RelationshipType(typ)
	return r, nil
}

func scanRelationshipRows(rows pgx.Rows) ([]domain.Relationship, error) {
	var out []domain.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("relstore: scan relationship: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RelationshipStore) put(ctx context.Context, r domain.Relationship) error {
	ctx, span := tracer.Start(ctx, "relstore.put_relationship",
		trace.WithAttributes(attribute.String("headkey.relationship_type", string(r.Type))))
	defer span.End()

	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO relationship (id, agent_id, source_belief_id, target_belief_id, type, strength, active, created_at, last_updated, effective_from, effective_until, deprecation_reason, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			strength = EXCLUDED.strength,
			active = EXCLUDED.active,
			last_updated = EXCLUDED.last_updated,
			effective_from = EXCLUDED.effective_from,
			effective_until = EXCLUDED.effective_until,
			deprecation_reason = EXCLUDED.deprecation_reason,
			metadata = EXCLUDED.metadata`,
		string(r.ID), string(r.AgentID), string(r.SourceBeliefID), string(r.TargetBeliefID), string(r.Type),
		r.Strength, r.Active, r.CreatedAt, r.LastUpdated, r.EffectiveFrom, r.EffectiveUntil, r.DeprecationReason, metadataOrEmpty(r.Metadata))
	if err != nil {
		return domain.NewError("relstore: put relationship", domain.ErrKindBackendUnavailable, err)
	}
	return nil
}

// Create links src->dst after validating both endpoints exist and belong to
// agent, the same enforcement the document strategy shares via
// internal/relationship.ValidateEndpoints.
func (s *RelationshipStore) Create(ctx context.Context, src, dst domain.BeliefID, t domain.RelationshipType, strength float64, agent domain.AgentID, metadata map[string]any) (domain.Relationship, error) {
	if err := relationship.ValidateEndpoints(ctx, s.beliefs, agent, src, dst); err != nil {
		return domain.Relationship{}, err
	}
	r := domain.NewRelationship(agent, src, dst, t, strength, metadata)
	if err := s.put(ctx, r); err != nil {
		return domain.Relationship{}, err
	}
	return r, nil
}

// CreateTemporal is Create plus an effective window, rejecting an inverted
// window up front.
func (s *RelationshipStore) CreateTemporal(ctx context.Context, src, dst domain.BeliefID, t domain.RelationshipType, strength float64, agent domain.AgentID, metadata map[string]any, effectiveFrom time.Time, effectiveUntil *time.Time) (domain.Relationship, error) {
	if !domain.ValidTemporalOrder(&effectiveFrom, effectiveUntil) {
		return domain.Relationship{}, domain.NewError("relstore: create temporal relationship", domain.ErrKindTemporalInvalid, nil)
	}
	if err := relationship.ValidateEndpoints(ctx, s.beliefs, agent, src, dst); err != nil {
		return domain.Relationship{}, err
	}
	r := domain.NewRelationship(agent, src, dst, t, strength, metadata)
	r.EffectiveFrom = &effectiveFrom
	r.EffectiveUntil = effectiveUntil
	if err := s.put(ctx, r); err != nil {
		return domain.Relationship{}, err
	}
	return r, nil
}

// Deprecate links oldID->newID with a DEPRECATES edge at full strength,
// recording reason.
func (s *RelationshipStore) Deprecate(ctx context.Context, oldID, newID domain.BeliefID, reason string, agent domain.AgentID) (domain.Relationship, error) {
	r, err := s.Create(ctx, oldID, newID, domain.RelDeprecates, 1.0, agent, nil)
	if err != nil {
		return domain.Relationship{}, err
	}
	r.DeprecationReason = &reason
	if err := s.put(ctx, r); err != nil {
		return domain.Relationship{}, err
	}
	return r, nil
}

// Get retrieves a relationship scoped to agent.
func (s *RelationshipStore) Get(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (*domain.Relationship, error) {
	row := s.db.pool.QueryRow(ctx, `SELECT `+relationshipColumns+` FROM relationship WHERE id = $1 AND agent_id = $2`, string(id), string(agent))
	r, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewError("relstore: get relationship", domain.ErrKindBackendUnavailable, err)
	}
	return &r, nil
}

// UpdateStrength clamps and applies a new strength.
func (s *RelationshipStore) UpdateStrength(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, newStrength float64) (domain.Relationship, error) {
	strength := domain.ClampStrength(newStrength)
	return s.update(ctx, id, agent, &strength, nil)
}

// Update applies an optional strength and/or metadata patch.
func (s *RelationshipStore) Update(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, strength *float64, metadata map[string]any) (domain.Relationship, error) {
	return s.update(ctx, id, agent, strength, metadata)
}

func (s *RelationshipStore) update(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, strength *float64, metadata map[string]any) (domain.Relationship, error) {
	r, err := s.Get(ctx, id, agent)
	if err != nil {
		return domain.Relationship{}, err
	}
	if r == nil {
		return domain.Relationship{}, domain.NewError("relstore: update relationship", domain.ErrKindNotFound, nil)
	}
	if strength != nil {
		r.Strength = domain.ClampStrength(*strength)
	}
	if metadata != nil {
		r.Metadata = metadata
	}
	r.LastUpdated = time.Now().UTC()
	if err := s.put(ctx, *r); err != nil {
		return domain.Relationship{}, err
	}
	return *r, nil
}

func (s *RelationshipStore) setActive(ctx context.Context, id domain.RelationshipID, agent domain.AgentID, active bool) (bool, error) {
	tag, err := s.db.pool.Exec(ctx, `UPDATE relationship SET active = $1, last_updated = now() WHERE id = $2 AND agent_id = $3`, active, string(id), string(agent))
	if err != nil {
		return false, domain.NewError("relstore: set relationship active", domain.ErrKindBackendUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Deactivate marks a relationship inactive without deleting it.
func (s *RelationshipStore) Deactivate(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (bool, error) {
	return s.setActive(ctx, id, agent, false)
}

// Reactivate marks a relationship active again.
func (s *RelationshipStore) Reactivate(ctx context.Context, id domain.RelationshipID, agent domain.AgentID) (bool, error) {
	return s.setActive(ctx, id, agent, true)
}

func (s *RelationshipStore) queryRelationships(ctx context.Context, where string, args []any) ([]domain.Relationship, error) {
	sql := `SELECT ` + relationshipColumns + ` FROM relationship`
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " ORDER BY created_at ASC"
	rows, err := s.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewError("relstore: query relationships", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	out, err := scanRelationshipRows(rows)
	if err != nil {
		return nil, domain.NewError("relstore: query relationships", domain.ErrKindBackendUnavailable, err)
	}
	return out, nil
}

// ForBelief lists every relationship touching id as either endpoint.
func (s *RelationshipStore) ForBelief(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND (source_belief_id = $2 OR target_belief_id = $2)`, []any{string(agent), string(id)})
}

// Outgoing lists relationships with id as source.
func (s *RelationshipStore) Outgoing(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND source_belief_id = $2`, []any{string(agent), string(id)})
}

// Incoming lists relationships with id as target.
func (s *RelationshipStore) Incoming(ctx context.Context, id domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND target_belief_id = $2`, []any{string(agent), string(id)})
}

// Between lists relationships directed from src to dst.
func (s *RelationshipStore) Between(ctx context.Context, src, dst domain.BeliefID, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND source_belief_id = $2 AND target_belief_id = $3`, []any{string(agent), string(src), string(dst)})
}

// ByType lists relationships of the given type.
func (s *RelationshipStore) ByType(ctx context.Context, t domain.RelationshipType, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND type = $2`, []any{string(agent), string(t)})
}

// ByStrengthGTE lists relationships at or above threshold.
func (s *RelationshipStore) ByStrengthGTE(ctx context.Context, threshold float64, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND strength >= $2`, []any{string(agent), threshold})
}

// EffectiveAt lists relationships whose effective window covers at, computed
// client-side via IsCurrentlyEffective since it also folds in Active.
func (s *RelationshipStore) EffectiveAt(ctx context.Context, at time.Time, agent domain.AgentID) ([]domain.Relationship, error) {
	all, err := s.queryRelationships(ctx, `agent_id = $1`, []any{string(agent)})
	if err != nil {
		return nil, err
	}
	var out []domain.Relationship
	for _, r := range all {
		if r.IsCurrentlyEffective(at) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ExpiredBefore lists relationships whose effective_until precedes at.
func (s *RelationshipStore) ExpiredBefore(ctx context.Context, at time.Time, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND effective_until IS NOT NULL AND effective_until < $2`, []any{string(agent), at})
}

// All lists every relationship for agent.
func (s *RelationshipStore) All(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1`, []any{string(agent)})
}

// Count returns the number of relationships for agent.
func (s *RelationshipStore) Count(ctx context.Context, agent domain.AgentID) (int, error) {
	var n int
	if err := s.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM relationship WHERE agent_id = $1`, string(agent)).Scan(&n); err != nil {
		return 0, domain.NewError("relstore: count relationships", domain.ErrKindBackendUnavailable, err)
	}
	return n, nil
}

// TypeDistribution aggregates relationship counts by type via GROUP BY.
func (s *RelationshipStore) TypeDistribution(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]int, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT type, COUNT(*) FROM relationship WHERE agent_id = $1 GROUP BY type`, string(agent))
	if err != nil {
		return nil, domain.NewError("relstore: relationship type distribution", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	out := map[domain.RelationshipType]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, domain.NewError("relstore: relationship type distribution", domain.ErrKindBackendUnavailable, err)
		}
		out[domain.RelationshipType(typ)] = n
	}
	return out, rows.Err()
}

// AvgStrengthByType aggregates average strength by type via GROUP BY/AVG.
func (s *RelationshipStore) AvgStrengthByType(ctx context.Context, agent domain.AgentID) (map[domain.RelationshipType]float64, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT type, AVG(strength) FROM relationship WHERE agent_id = $1 GROUP BY type`, string(agent))
	if err != nil {
		return nil, domain.NewError("relstore: avg strength by type", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	out := map[domain.RelationshipType]float64{}
	for rows.Next() {
		var typ string
		var avg float64
		if err := rows.Scan(&typ, &avg); err != nil {
			return nil, domain.NewError("relstore: avg strength by type", domain.ErrKindBackendUnavailable, err)
		}
		out[domain.RelationshipType(typ)] = avg
	}
	return out, rows.Err()
}

// Orphans lists relationships whose source or target belief no longer
// exists, pushed into SQL via a NOT EXISTS anti-join since belief and
// relationship share one database — the document strategy has to do this
// client-side (see internal/docstore) because its collections don't support
// cross-collection joins.
func (s *RelationshipStore) Orphans(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND (
		NOT EXISTS (SELECT 1 FROM belief b WHERE b.id = relationship.source_belief_id)
		OR NOT EXISTS (SELECT 1 FROM belief b WHERE b.id = relationship.target_belief_id))`, []any{string(agent)})
}

// SelfRefs lists relationships whose source equals its target.
func (s *RelationshipStore) SelfRefs(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND source_belief_id = target_belief_id`, []any{string(agent)})
}

// TemporallyInvalid lists relationships with effective_from > effective_until.
func (s *RelationshipStore) TemporallyInvalid(ctx context.Context, agent domain.AgentID) ([]domain.Relationship, error) {
	return s.queryRelationships(ctx, `agent_id = $1 AND effective_from IS NOT NULL AND effective_until IS NOT NULL AND effective_from > effective_until`, []any{string(agent)})
}

// BulkCreate validates and inserts a batch of already-constructed relationships.
func (s *RelationshipStore) BulkCreate(ctx context.Context, relationships []domain.Relationship) ([]domain.Relationship, error) {
	out := make([]domain.Relationship, 0, len(relationships))
	for _, r := range relationships {
		if err := relationship.ValidateEndpoints(ctx, s.beliefs, r.AgentID, r.SourceBeliefID, r.TargetBeliefID); err != nil {
			return out, err
		}
		if err := s.put(ctx, r); err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// SetStrengthMany applies newStrength to every relationship in ids,
// returning the number updated.
func (s *RelationshipStore) SetStrengthMany(ctx context.Context, ids []domain.RelationshipID, newStrength float64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	strIDs := idsToStrings(ids)
	tag, err := s.db.pool.Exec(ctx, `UPDATE relationship SET strength = $1, last_updated = now() WHERE id = ANY($2)`, domain.ClampStrength(newStrength), strIDs)
	if err != nil {
		return 0, domain.NewError("relstore: set strength many", domain.ErrKindBackendUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *RelationshipStore) setActiveMany(ctx context.Context, ids []domain.RelationshipID, active bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.db.pool.Exec(ctx, `UPDATE relationship SET active = $1, last_updated = now() WHERE id = ANY($2)`, active, idsToStrings(ids))
	if err != nil {
		return 0, domain.NewError("relstore: set active many", domain.ErrKindBackendUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// DeactivateMany marks a batch of relationships inactive.
func (s *RelationshipStore) DeactivateMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	return s.setActiveMany(ctx, ids, false)
}

// ReactivateMany marks a batch of relationships active.
func (s *RelationshipStore) ReactivateMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	return s.setActiveMany(ctx, ids, true)
}

// DeleteMany deletes a batch of relationships by ID.
func (s *RelationshipStore) DeleteMany(ctx context.Context, ids []domain.RelationshipID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM relationship WHERE id = ANY($1)`, idsToStrings(ids))
	if err != nil {
		return 0, domain.NewError("relstore: delete many relationships", domain.ErrKindBackendUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteOldInactive deletes inactive relationships for agent last touched
// more than olderThanDays days ago.
func (s *RelationshipStore) DeleteOldInactive(ctx context.Context, agent domain.AgentID, olderThanDays int) (int, error) {
	tag, err := s.db.pool.Exec(ctx, `
		DELETE FROM relationship
		WHERE agent_id = $1 AND active = false AND last_updated < now() - make_interval(days => $2)`,
		string(agent), olderThanDays)
	if err != nil {
		return 0, domain.NewError("relstore: delete old inactive relationships", domain.ErrKindBackendUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

func idsToStrings(ids []domain.RelationshipID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
