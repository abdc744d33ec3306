package graph

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/savantly-net/headkey/internal/domain"
)

// snapshotWorkers bounds how many concurrent belief/relationship fetches
// Snapshot/FilteredSnapshot run at once, mirroring the teacher's bounded
// errgroup fan-out in internal/conflicts/scorer.go's BackfillScoring.
const snapshotWorkers = 4

// Snapshot assembles every belief and relationship for agent into one
// consistent in-memory view, fetching beliefs and relationships concurrently.
// When includeInactive is false, a relationship is kept only if it is itself
// active AND both endpoints survived the belief filter — an active edge
// pointing at an excluded (inactive) belief would otherwise violate the
// snapshot's edge-closure property, since FilteredSnapshot already enforces
// the same closure via its `selected` set.
func (q *Query) Snapshot(ctx context.Context, agent domain.AgentID, includeInactive bool) (domain.Snapshot, error) {
	var beliefs []domain.Belief
	var relationships []domain.Relationship

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotWorkers)

	g.Go(func() error {
		all, err := q.beliefs.ForAgent(gCtx, agent, includeInactive)
		if err != nil {
			return err
		}
		beliefs = all
		return nil
	})
	g.Go(func() error {
		all, err := q.relationships.All(gCtx, agent)
		if err != nil {
			return err
		}
		relationships = all
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}

	if !includeInactive {
		present := make(map[domain.BeliefID]struct{}, len(beliefs))
		for _, b := range beliefs {
			present[b.ID] = struct{}{}
		}
		closed := relationships[:0]
		for _, r := range relationships {
			if !r.Active {
				continue
			}
			if _, ok := present[r.SourceBeliefID]; !ok {
				continue
			}
			if _, ok := present[r.TargetBeliefID]; !ok {
				continue
			}
			closed = append(closed, r)
		}
		relationships = closed
	}

	return domain.Snapshot{AgentID: agent, Beliefs: beliefs, Relationships: relationships}, nil
}

// FilteredSnapshot builds a snapshot restricted to beliefIDs (all of the
// agent's beliefs when empty), relationships limited to types (any type when
// empty) whose endpoints both fall within the selected belief set, and caps
// the belief count at maxBeliefs (0 = unlimited).
func (q *Query) FilteredSnapshot(ctx context.Context, agent domain.AgentID, beliefIDs []domain.BeliefID, types []domain.RelationshipType, maxBeliefs int) (domain.Snapshot, error) {
	var beliefs []domain.Belief
	var err error
	if len(beliefIDs) > 0 {
		beliefs, err = q.beliefs.GetMany(ctx, beliefIDs)
	} else {
		beliefs, err = q.beliefs.ForAgent(ctx, agent, false)
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	if maxBeliefs > 0 && len(beliefs) > maxBeliefs {
		beliefs = beliefs[:maxBeliefs]
	}

	selected := make(map[domain.BeliefID]struct{}, len(beliefs))
	for _, b := range beliefs {
		selected[b.ID] = struct{}{}
	}

	allowedType := func(domain.RelationshipType) bool { return true }
	if len(types) > 0 {
		set := make(map[domain.RelationshipType]bool, len(types))
		for _, t := range types {
			set[t] = true
		}
		allowedType = func(t domain.RelationshipType) bool { return set[t] }
	}

	var relationships []domain.Relationship
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotWorkers)
	results := make([][]domain.Relationship, len(beliefs))
	for i, b := range beliefs {
		i, b := i, b
		g.Go(func() error {
			out, err := q.relationships.Outgoing(gCtx, b.ID, agent)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}

	seen := make(map[domain.RelationshipID]struct{})
	for _, rs := range results {
		for _, r := range rs {
			if !allowedType(r.Type) {
				continue
			}
			if _, ok := selected[r.TargetBeliefID]; !ok {
				continue
			}
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			relationships = append(relationships, r)
		}
	}

	return domain.Snapshot{AgentID: agent, Beliefs: beliefs, Relationships: relationships}, nil
}

// ExportSnapshot builds the full snapshot (inactive beliefs and
// relationships included). format is not used and not recorded in the
// result; encoding is left to the caller, since Snapshot's shape is already
// format-neutral.
func (q *Query) ExportSnapshot(ctx context.Context, agent domain.AgentID, format string) (domain.Snapshot, error) {
	_ = format
	return q.Snapshot(ctx, agent, true)
}
