package relstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
)

var _ ports.ConflictStore = (*BeliefStore)(nil)

// PutConflict upserts a conflict record and its member beliefs, grounded on
// the same delete-then-reinsert child-table pattern as Put's tag/evidence
// handling.
func (s *BeliefStore) PutConflict(ctx context.Context, c domain.BeliefConflict) (domain.BeliefConflict, error) {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return domain.BeliefConflict{}, domain.NewError("relstore: begin put conflict", domain.ErrKindBackendUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	detectedAt := c.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO belief_conflict (id, agent_id, description, resolved, resolution, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			resolved = EXCLUDED.resolved,
			resolution = EXCLUDED.resolution`,
		string(c.ID), string(c.AgentID), c.Description, c.Resolved, c.Resolution, detectedAt)
	if err != nil {
		return domain.BeliefConflict{}, domain.NewError("relstore: put conflict", domain.ErrKindBackendUnavailable, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM belief_conflict_member WHERE conflict_id = $1`, string(c.ID)); err != nil {
		return domain.BeliefConflict{}, domain.NewError("relstore: put conflict members", domain.ErrKindBackendUnavailable, err)
	}
	for _, beliefID := range c.ConflictingBeliefIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO belief_conflict_member (conflict_id, belief_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, string(c.ID), string(beliefID)); err != nil {
			return domain.BeliefConflict{}, domain.NewError("relstore: put conflict members", domain.ErrKindBackendUnavailable, err)
		}
	}

	row := tx.QueryRow(ctx, `SELECT detected_at FROM belief_conflict WHERE id = $1`, string(c.ID))
	if err := row.Scan(&c.DetectedAt); err != nil {
		return domain.BeliefConflict{}, domain.NewError("relstore: put conflict", domain.ErrKindBackendUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.BeliefConflict{}, domain.NewError("relstore: commit put conflict", domain.ErrKindBackendUnavailable, err)
	}
	return c, nil
}

func (s *BeliefStore) loadConflictMembers(ctx context.Context, conflictID string) ([]domain.BeliefID, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT belief_id FROM belief_conflict_member WHERE conflict_id = $1`, conflictID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.BeliefID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, domain.BeliefID(id))
	}
	return out, rows.Err()
}

func scanConflict(row pgx.Row) (domain.BeliefConflict, error) {
	var c domain.BeliefConflict
	var id, agentID string
	if err := row.Scan(&id, &agentID, &c.Description, &c.Resolved, &c.Resolution, &c.DetectedAt); err != nil {
		return domain.BeliefConflict{}, err
	}
	c.ID = domain.ConflictID(id)
	c.AgentID = domain.AgentID(agentID)
	return c, nil
}

// GetConflict retrieves a conflict by ID; the id is globally unique so no
// agent scoping is needed.
func (s *BeliefStore) GetConflict(ctx context.Context, id domain.ConflictID) (*domain.BeliefConflict, error) {
	row := s.db.pool.QueryRow(ctx, `SELECT id, agent_id, description, resolved, resolution, detected_at FROM belief_conflict WHERE id = $1`, string(id))
	c, err := scanConflict(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewError("relstore: get conflict", domain.ErrKindBackendUnavailable, err)
	}
	members, err := s.loadConflictMembers(ctx, string(c.ID))
	if err != nil {
		return nil, domain.NewError("relstore: get conflict", domain.ErrKindBackendUnavailable, err)
	}
	c.ConflictingBeliefIDs = members
	return &c, nil
}

// Unresolved lists unresolved conflicts, optionally scoped to agent.
func (s *BeliefStore) Unresolved(ctx context.Context, agent *domain.AgentID) ([]domain.BeliefConflict, error) {
	sql := `SELECT id, agent_id, description, resolved, resolution, detected_at FROM belief_conflict WHERE resolved = false`
	args := []any{}
	if agent != nil {
		sql += " AND agent_id = $1"
		args = append(args, string(*agent))
	}
	sql += " ORDER BY detected_at DESC"
	rows, err := s.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewError("relstore: unresolved conflicts", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	var out []domain.BeliefConflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, domain.NewError("relstore: unresolved conflicts", domain.ErrKindBackendUnavailable, err)
		}
		members, err := s.loadConflictMembers(ctx, string(c.ID))
		if err != nil {
			return nil, domain.NewError("relstore: unresolved conflicts", domain.ErrKindBackendUnavailable, err)
		}
		c.ConflictingBeliefIDs = members
		out = append(out, c)
	}
	return out, rows.Err()
}

// RemoveConflict deletes a conflict and its member rows (cascade).
func (s *BeliefStore) RemoveConflict(ctx context.Context, id domain.ConflictID) (bool, error) {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM belief_conflict WHERE id = $1`, string(id))
	if err != nil {
		return false, domain.NewError("relstore: remove conflict", domain.ErrKindBackendUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}
