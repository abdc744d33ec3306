// Package relationship holds the endpoint-existence validation shared by
// every RelationshipStore strategy implementation, so both the document and
// relational backends enforce the same invariant the same way (spec §4.5).
package relationship

import (
	"context"
	"fmt"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
)

// ValidateEndpoints checks that both src and dst name beliefs that exist and
// belong to agent, using BeliefStore.GetMany so both strategies derive
// presence from the same "get_many(ids) -> beliefs, presence by set
// membership" contract (resolving the getBeliefsById ambiguity noted in
// spec §9's Open Questions).
func ValidateEndpoints(ctx context.Context, store ports.BeliefStore, agent domain.AgentID, src, dst domain.BeliefID) error {
	beliefs, err := store.GetMany(ctx, []domain.BeliefID{src, dst})
	if err != nil {
		return domain.NewError("relationship: validate endpoints", domain.ErrKindBackendUnavailable, err)
	}

	present := make(map[domain.BeliefID]domain.AgentID, len(beliefs))
	for _, b := range beliefs {
		present[b.ID] = b.AgentID
	}

	for _, id := range []domain.BeliefID{src, dst} {
		owner, ok := present[id]
		if !ok {
			return domain.NewError(fmt.Sprintf("relationship: endpoint %s missing", id), domain.ErrKindBeliefMissing, nil)
		}
		if owner != agent {
			return domain.NewError(fmt.Sprintf("relationship: endpoint %s belongs to a different agent", id), domain.ErrKindBeliefMissing, nil)
		}
	}
	return nil
}
