// Package docstore implements the document/search storage strategy (C3) over
// Qdrant: BeliefStore, ConflictStore, and RelationshipStore backed by one
// collection per agent per entity kind.
package docstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Default collection-name prefixes and version suffix (§6).
const (
	DefaultBeliefPrefix       = "headkey-belief"
	DefaultRelationshipPrefix = "headkey-relationship"
	DefaultVersionSuffix      = "v1"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9-]`)

// SanitizeAgent lowercases agentID and replaces every character outside
// [a-z0-9-] with a hyphen, as required for collection naming (§6).
func SanitizeAgent(agentID string) string {
	lowered := strings.ToLower(agentID)
	return nonSlug.ReplaceAllString(lowered, "-")
}

// CollectionName renders "<prefix>-<sanitized_agent>-<version-suffix>".
func CollectionName(prefix, agentID, versionSuffix string) string {
	if versionSuffix == "" {
		versionSuffix = DefaultVersionSuffix
	}
	return fmt.Sprintf("%s-%s-%s", prefix, SanitizeAgent(agentID), versionSuffix)
}
