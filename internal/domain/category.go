package domain

// UnknownCategory is the sentinel primary category used when extraction
// cannot confidently classify content, or when a proposed category is not a
// member of the configured vocabulary.
const UnknownCategory = "Unknown"

// DefaultCategories is the default 11-element category vocabulary (§6).
var DefaultCategories = []string{
	"UserProfile", "WorldFact", "PersonalData", "BusinessRule",
	"TechnicalKnowledge", "EmotionalState", "Preference", "Goal", "Memory",
	"Communication", UnknownCategory,
}

// CategoryLabel is the structured output of categorization: a primary
// category (must be a member of the configured vocabulary, or Unknown), an
// optional secondary category, a tag set, and a confidence score.
type CategoryLabel struct {
	Primary    string   `json:"primary"`
	Secondary  string   `json:"secondary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Confidence float64  `json:"confidence"`
}

// ValidateAgainstSchema replaces Primary with UnknownCategory if it is not a
// member of available, and drops Secondary if it is not a member of
// subcategories[Primary]. Confidence is clamped to [0,1]. The receiver is a
// value: the validated label is returned and the caller's copy is unchanged.
func (c CategoryLabel) ValidateAgainstSchema(available []string, subcategories map[string][]string) CategoryLabel {
	if !contains(available, c.Primary) {
		c.Primary = UnknownCategory
	}
	if c.Secondary != "" {
		allowed := subcategories[c.Primary]
		if !contains(allowed, c.Secondary) {
			c.Secondary = ""
		}
	}
	c.Confidence = ClampConfidence(c.Confidence)
	return c
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
