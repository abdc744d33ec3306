package extract

import (
	"context"

	"github.com/savantly-net/headkey/internal/domain"
)

// Engine composes every extraction port the pipeline needs, enforcing the
// schema-validation rules around category/subcategory/confidence that no
// individual port is trusted to honor on its own.
type Engine struct {
	Beliefs     BeliefExtractor
	Similarity  SimilarityScorer
	Conflicts   ConflictDetector
	Category    Categorizer
	Confidence  ConfidenceScorer
	CategoryExt CategoryExtractor
	Tags        TagExtractor

	AvailableCategories   []string
	CategorySubcategories map[string][]string
}

// NewEngine wires every port to the shared deterministic fallback.
// Callers override individual fields to plug in real extraction/LLM
// backends without touching the others.
func NewEngine(availableCategories []string, categorySubcategories map[string][]string) *Engine {
	fb := FallbackExtractor{}
	return &Engine{
		Beliefs:               fb,
		Similarity:            fb,
		Conflicts:             fb,
		Category:              fb,
		Confidence:            fb,
		CategoryExt:           fb,
		Tags:                  fb,
		AvailableCategories:   availableCategories,
		CategorySubcategories: categorySubcategories,
	}
}

const defaultReasoning = "no reasoning provided"

// ExtractCategoryValidated calls CategoryExt.ExtractCategory and enforces
// the schema: a primary outside AvailableCategories is replaced with
// "Unknown"; a secondary outside that primary's allowed subcategory set is
// dropped; confidence is clamped; a blank reasoning gets a default.
func (e *Engine) ExtractCategoryValidated(ctx context.Context, content string, contextMetadata map[string]any) (CategoryExtraction, error) {
	result, err := e.CategoryExt.ExtractCategory(ctx, content, e.AvailableCategories, contextMetadata)
	if err != nil {
		return CategoryExtraction{}, domain.NewError("extract: extract category", domain.ErrKindExtractionFailed, err)
	}

	if !containsString(e.AvailableCategories, result.Primary) {
		result.Primary = "Unknown"
	}
	if result.Secondary != "" {
		allowed := e.CategorySubcategories[result.Primary]
		if !containsString(allowed, result.Secondary) {
			result.Secondary = ""
		}
	}
	result.Confidence = domain.ClampConfidence(result.Confidence)
	if result.Reasoning == "" {
		result.Reasoning = defaultReasoning
	}
	return result, nil
}

// ExtractTagsWithPatterns runs Tags.ExtractTags and merges in the
// always-applied pattern-based tags from patterns.go.
func (e *Engine) ExtractTagsWithPatterns(ctx context.Context, content, contextHint string) (TagExtraction, error) {
	result, err := e.Tags.ExtractTags(ctx, content, contextHint)
	if err != nil {
		result = TagExtraction{}
	}
	result.Tags = append(result.Tags, PatternTags(content)...)
	return result, nil
}

// Healthy reports whether every wired port is healthy.
func (e *Engine) Healthy(ctx context.Context) error {
	probes := []func(context.Context) error{
		e.Beliefs.Healthy, e.Similarity.Healthy, e.Conflicts.Healthy,
		e.Category.Healthy, e.Confidence.Healthy, e.CategoryExt.Healthy, e.Tags.Healthy,
	}
	for _, probe := range probes {
		if err := probe(ctx); err != nil {
			return domain.NewError("extract: health check", domain.ErrKindExtractionFailed, err)
		}
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
