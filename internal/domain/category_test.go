package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAgainstSchema(t *testing.T) {
	available := []string{"Preference", "WorldFact", UnknownCategory}
	subcats := map[string][]string{
		"Preference": {"food", "music"},
	}

	// Unknown primary is replaced with the sentinel.
	got := CategoryLabel{Primary: "NotARealCategory", Confidence: 1.5}.ValidateAgainstSchema(available, subcats)
	assert.Equal(t, UnknownCategory, got.Primary)
	assert.Equal(t, 1.0, got.Confidence)

	// Disallowed secondary for the resolved primary is dropped.
	got2 := CategoryLabel{Primary: "Preference", Secondary: "sports"}.ValidateAgainstSchema(available, subcats)
	assert.Equal(t, "Preference", got2.Primary)
	assert.Empty(t, got2.Secondary)

	// Allowed secondary survives.
	got3 := CategoryLabel{Primary: "Preference", Secondary: "food"}.ValidateAgainstSchema(available, subcats)
	assert.Equal(t, "food", got3.Secondary)
}
