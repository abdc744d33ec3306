package domain

// RelationshipType is a closed set of tagged variants identifying the
// semantics of a BeliefRelationship edge. Codes are stable tokens used at
// the storage boundary and must never be renumbered or renamed once shipped.
type RelationshipType string

const (
	RelSupports     RelationshipType = "SUPPORTS"
	RelContradicts  RelationshipType = "CONTRADICTS"
	RelExtends      RelationshipType = "EXTENDS"
	RelSpecializes  RelationshipType = "SPECIALIZES"
	RelGeneralizes  RelationshipType = "GENERALIZES"
	RelCauses       RelationshipType = "CAUSES"
	RelEnables      RelationshipType = "ENABLES"
	RelDeprecates   RelationshipType = "DEPRECATES"
	RelUpdates      RelationshipType = "UPDATES"
	RelReplaces     RelationshipType = "REPLACES"
	RelSupersedes   RelationshipType = "SUPERSEDES"
	RelRelatesTo    RelationshipType = "RELATES_TO"
)

// allRelationshipTypes is the bijective code<->variant table. Kept as a
// slice (not a map) so iteration order is stable for tests and docs.
var allRelationshipTypes = []RelationshipType{
	RelSupports, RelContradicts, RelExtends, RelSpecializes, RelGeneralizes,
	RelCauses, RelEnables, RelDeprecates, RelUpdates, RelReplaces,
	RelSupersedes, RelRelatesTo,
}

// deprecatingTypes is the subset of variants that denote supersession.
var deprecatingTypes = map[RelationshipType]bool{
	RelDeprecates: true,
	RelUpdates:    true,
	RelReplaces:   true,
	RelSupersedes: true,
}

// IsDeprecating reports whether this relationship type denotes supersession
// of one belief by another.
func (t RelationshipType) IsDeprecating() bool {
	return deprecatingTypes[t]
}

// Valid reports whether t is a member of the closed RelationshipType set.
func (t RelationshipType) Valid() bool {
	for _, v := range allRelationshipTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ParseRelationshipType is total over the defined set: it returns
// (type, true) for any known code (case-sensitive, codes are stored
// upper-cased) and ("", false) otherwise.
func ParseRelationshipType(code string) (RelationshipType, bool) {
	t := RelationshipType(code)
	if t.Valid() {
		return t, true
	}
	return "", false
}

// AllRelationshipTypes returns the closed set of defined relationship types.
func AllRelationshipTypes() []RelationshipType {
	out := make([]RelationshipType, len(allRelationshipTypes))
	copy(out, allRelationshipTypes)
	return out
}
