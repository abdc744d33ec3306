package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampStrength(t *testing.T) {
	assert.Equal(t, 0.0, ClampStrength(-1))
	assert.Equal(t, 1.0, ClampStrength(2))
	assert.Equal(t, 0.5, ClampStrength(0.5))
}

func TestValidTemporalOrder(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	assert.True(t, ValidTemporalOrder(nil, nil))
	assert.True(t, ValidTemporalOrder(&now, nil))
	assert.True(t, ValidTemporalOrder(&now, &now), "equal bounds are accepted")
	assert.True(t, ValidTemporalOrder(&now, &later))
	assert.False(t, ValidTemporalOrder(&later, &now))
}

func TestIsCurrentlyEffective(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	r := NewRelationship("a1", "b1", "b2", RelRelatesTo, 0.5, nil)
	assert.True(t, r.IsCurrentlyEffective(now), "no bounds, active -> effective")

	r.Active = false
	assert.False(t, r.IsCurrentlyEffective(now), "inactive is never effective")
	r.Active = true

	r.EffectiveFrom = &future
	assert.False(t, r.IsCurrentlyEffective(now), "not yet started")
	r.EffectiveFrom = &past
	assert.True(t, r.IsCurrentlyEffective(now))

	r.EffectiveUntil = &past
	assert.False(t, r.IsCurrentlyEffective(now), "already expired")
	r.EffectiveUntil = &future
	assert.True(t, r.IsCurrentlyEffective(now))

	// effective_from == effective_until is an instant, empty window.
	r2 := NewRelationship("a1", "b1", "b2", RelRelatesTo, 0.5, nil)
	r2.EffectiveFrom = &now
	r2.EffectiveUntil = &now
	assert.False(t, r2.IsCurrentlyEffective(now))
}
