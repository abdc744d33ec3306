package headkey

import (
	"log/slog"

	"github.com/savantly-net/headkey/internal/config"
	"github.com/savantly-net/headkey/internal/extract"
)

// Option configures an App during New.
type Option func(*resolvedOptions)

// resolvedOptions holds every extension point after defaults are applied.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	cfg            *config.Config
	logger         *slog.Logger
	version        string
	beliefs        extract.BeliefExtractor
	similarity     extract.SimilarityScorer
	conflicts      extract.ConflictDetector
	category       extract.Categorizer
	confidence     extract.ConfidenceScorer
	categoryExt    extract.CategoryExtractor
	tags           extract.TagExtractor
}

// WithConfig overrides the configuration loaded from the environment.
func WithConfig(cfg config.Config) Option {
	return func(o *resolvedOptions) { o.cfg = &cfg }
}

// WithLogger sets the structured logger used by the App and its storage
// backend. If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported to telemetry and the MCP
// server handshake.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithBeliefExtractor replaces the deterministic fallback belief extractor
// with a real extraction backend (e.g. an LLM-backed implementation).
func WithBeliefExtractor(e extract.BeliefExtractor) Option {
	return func(o *resolvedOptions) { o.beliefs = e }
}

// WithSimilarityScorer replaces the deterministic fallback similarity
// scorer.
func WithSimilarityScorer(s extract.SimilarityScorer) Option {
	return func(o *resolvedOptions) { o.similarity = s }
}

// WithConflictDetector replaces the deterministic fallback conflict
// detector.
func WithConflictDetector(c extract.ConflictDetector) Option {
	return func(o *resolvedOptions) { o.conflicts = c }
}

// WithCategorizer replaces the deterministic fallback categorizer.
func WithCategorizer(c extract.Categorizer) Option {
	return func(o *resolvedOptions) { o.category = c }
}

// WithConfidenceScorer replaces the deterministic fallback confidence
// scorer.
func WithConfidenceScorer(c extract.ConfidenceScorer) Option {
	return func(o *resolvedOptions) { o.confidence = c }
}

// WithCategoryExtractor replaces the deterministic fallback category
// extractor.
func WithCategoryExtractor(c extract.CategoryExtractor) Option {
	return func(o *resolvedOptions) { o.categoryExt = c }
}

// WithTagExtractor replaces the deterministic fallback tag extractor. The
// always-applied pattern-based tags in internal/extract/patterns.go are
// still layered on top regardless of this override.
func WithTagExtractor(t extract.TagExtractor) Option {
	return func(o *resolvedOptions) { o.tags = t }
}
