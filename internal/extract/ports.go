// Package extract defines the extraction/categorization capability ports
// the pipeline depends on, each shipping a deterministic fallback so the
// core works unconditionally without any external model wired in —
// generalizing the teacher's PairwiseScorer/Validator capability-interface
// pattern in internal/conflicts/scorer.go to belief extraction.
package extract

import (
	"context"

	"github.com/savantly-net/headkey/internal/domain"
)

// ExtractedBelief is a candidate belief surfaced by a BeliefExtractor,
// not yet persisted.
type ExtractedBelief struct {
	Statement  string
	Category   string
	Confidence float64
	Polarity   bool
	Reasoning  string
	Tags       []string
}

// BeliefExtractor pulls candidate beliefs out of raw content.
type BeliefExtractor interface {
	ExtractBeliefs(ctx context.Context, content string, agent domain.AgentID, category string) ([]ExtractedBelief, error)
	Healthy(ctx context.Context) error
}

// SimilarityScorer scores two statements' semantic similarity in [0,1].
type SimilarityScorer interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
	Healthy(ctx context.Context) error
}

// ConflictDetector decides whether two statements conflict.
type ConflictDetector interface {
	Conflicts(ctx context.Context, a, b string, categoryA, categoryB string) (bool, error)
	Healthy(ctx context.Context) error
}

// Categorizer assigns a free-form category label to a statement.
type Categorizer interface {
	Categorize(ctx context.Context, statement string) (string, error)
	Healthy(ctx context.Context) error
}

// ConfidenceScorer estimates how confident a derived statement is, given the
// source content and an optional free-form context hint (e.g. the source
// channel, like "user_input").
type ConfidenceScorer interface {
	Confidence(ctx context.Context, content, statement, context string) (float64, error)
	Healthy(ctx context.Context) error
}

// CategoryExtraction is the result of CategoryExtractor.ExtractCategory.
type CategoryExtraction struct {
	Primary    string
	Secondary  string
	Confidence float64
	Reasoning  string
}

// CategoryExtractor assigns a primary/secondary category pair constrained to
// a caller-supplied schema.
type CategoryExtractor interface {
	ExtractCategory(ctx context.Context, content string, availableCategories []string, contextMetadata map[string]any) (CategoryExtraction, error)
	Healthy(ctx context.Context) error
}

// TagExtraction is the result of TagExtractor.ExtractTags.
type TagExtraction struct {
	Tags     []string
	Entities map[string][]string
}

// TagExtractor pulls free-form tags and named entities out of content. The
// core always supplements its output with the fixed pattern-based
// extractors in patterns.go.
type TagExtractor interface {
	ExtractTags(ctx context.Context, content, context string) (TagExtraction, error)
	Healthy(ctx context.Context) error
}
