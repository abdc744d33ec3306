package domain

import "time"

// BeliefConflict records a detected tension between two or more beliefs of
// the same agent.
type BeliefConflict struct {
	ID                   ConflictID `json:"id"`
	AgentID              AgentID    `json:"agent_id"`
	ConflictingBeliefIDs []BeliefID `json:"conflicting_belief_ids"`
	DetectedAt           time.Time  `json:"detected_at"`
	Resolved             bool       `json:"resolved"`
	Resolution           *string    `json:"resolution,omitempty"`
	Description          string     `json:"description"`
}

// NewConflict constructs an unresolved conflict record stamped with the
// current time. It does not validate that the referenced beliefs exist —
// callers (BeliefStore.PutConflict implementations) must do that.
func NewConflict(agent AgentID, beliefIDs []BeliefID, description string) BeliefConflict {
	ids := make([]BeliefID, len(beliefIDs))
	copy(ids, beliefIDs)
	return BeliefConflict{
		ID:                   NewConflictID(),
		AgentID:              agent,
		ConflictingBeliefIDs: ids,
		DetectedAt:           time.Now().UTC(),
		Resolved:             false,
		Description:          description,
	}
}

// Resolve marks the conflict resolved, stamping a resolution note. A
// resolved->resolved transition is a no-op (idempotent).
func (c *BeliefConflict) Resolve(resolution string) {
	if c.Resolved {
		return
	}
	c.Resolved = true
	r := resolution
	c.Resolution = &r
}
