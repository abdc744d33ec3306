// Package pipeline orchestrates ingestion: categorize, extract beliefs,
// find similar existing beliefs, detect conflicts, persist, and optionally
// link supersession edges — single-threaded per request, exactly as
// spec.md §4.9 describes. No step runs concurrently with another within one
// Ingest call; internal/graph is the only package in this module that
// fans work out within a single request.
package pipeline

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/extract"
	"github.com/savantly-net/headkey/internal/ports"
	"github.com/savantly-net/headkey/internal/telemetry"
)

// tracer spans each Ingest call; beliefsIngested counts persisted beliefs
// across all agents, the same per-package otel.Tracer/Meter idiom the
// teacher uses for its HTTP and buffer instrumentation.
var (
	tracer          = telemetry.Tracer("headkey/pipeline")
	meter           = telemetry.Meter("headkey/pipeline")
	beliefsIngested metric.Int64Counter
)

func init() {
	var err error
	beliefsIngested, err = meter.Int64Counter("headkey.pipeline.beliefs_ingested")
	if err != nil {
		beliefsIngested, _ = meter.Int64Counter("headkey.pipeline.beliefs_ingested.fallback")
	}
}

// Options configures a Pipeline's thresholds. Zero-value Options falls back
// to the documented defaults (spec.md §6's configuration surface).
type Options struct {
	// SimilarityThreshold gates which existing beliefs are considered
	// candidates for conflict checking / supersession.
	SimilarityThreshold float64
	// SimilarLimit bounds how many similar candidates FindSimilar returns.
	SimilarLimit int
}

func (o Options) withDefaults() Options {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = 0.6
	}
	if o.SimilarLimit <= 0 {
		o.SimilarLimit = 5
	}
	return o
}

// Pipeline composes the extraction engine with a belief store and a
// relationship store into the ingestion orchestrator.
type Pipeline struct {
	beliefs       ports.BeliefStore
	relationships ports.RelationshipStore
	extract       *extract.Engine
	opts          Options
}

// New wires an extraction engine over a belief/relationship store pair.
func New(beliefs ports.BeliefStore, relationships ports.RelationshipStore, engine *extract.Engine, opts Options) *Pipeline {
	return &Pipeline{beliefs: beliefs, relationships: relationships, extract: engine, opts: opts.withDefaults()}
}

// IngestedBelief reports the outcome for one belief extracted from an
// ingest's content.
type IngestedBelief struct {
	Belief           domain.Belief
	SimilarBeliefID  domain.BeliefID // zero value if no similar belief found.
	ConflictDetected bool
	ConflictID       domain.ConflictID // zero value unless ConflictDetected.
	SupersessionEdge *domain.Relationship
}

// IngestResult is the outcome of one Ingest call.
type IngestResult struct {
	Category CategoryResult
	Beliefs  []IngestedBelief
}

// CategoryResult is the validated category assigned to the ingested content.
type CategoryResult struct {
	Primary    string
	Secondary  string
	Confidence float64
}

// Ingest runs one content record through category extraction, belief
// extraction, similarity/conflict detection, and persistence. An extraction
// port failure returns an ErrExtractionFailed domain error with no retry.
// A category or belief extraction failure happens before anything is
// persisted. Beliefs are persisted one at a time, so when a later belief's
// tag or conflict extraction fails, the beliefs, conflicts and supersession
// edges already written by this call are not rolled back.
func (p *Pipeline) Ingest(ctx context.Context, content string, agent domain.AgentID) (IngestResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ingest",
		trace.WithAttributes(attribute.String("headkey.agent_id", string(agent))))
	defer span.End()

	category, err := p.extract.ExtractCategoryValidated(ctx, content, nil)
	if err != nil {
		return IngestResult{}, err
	}

	extracted, err := p.extract.Beliefs.ExtractBeliefs(ctx, content, agent, category.Primary)
	if err != nil {
		return IngestResult{}, domain.NewError("pipeline: extract beliefs", domain.ErrKindExtractionFailed, err)
	}

	result := IngestResult{
		Category: CategoryResult{Primary: category.Primary, Secondary: category.Secondary, Confidence: category.Confidence},
	}

	for _, eb := range extracted {
		ingested, err := p.ingestOne(ctx, eb, agent)
		if err != nil {
			return IngestResult{}, err
		}
		result.Beliefs = append(result.Beliefs, ingested)
	}
	beliefsIngested.Add(ctx, int64(len(result.Beliefs)), metric.WithAttributes(attribute.String("headkey.agent_id", string(agent))))
	return result, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, eb extract.ExtractedBelief, agent domain.AgentID) (IngestedBelief, error) {
	tags, err := p.extract.ExtractTagsWithPatterns(ctx, eb.Statement, eb.Category)
	if err != nil {
		return IngestedBelief{}, domain.NewError("pipeline: extract tags", domain.ErrKindExtractionFailed, err)
	}

	belief := domain.NewBelief(agent, eb.Statement, eb.Category, eb.Confidence)
	belief.Tags = append(tags.Tags, eb.Tags...)

	similar, err := p.beliefs.FindSimilar(ctx, belief.Statement, &agent, p.opts.SimilarityThreshold, p.opts.SimilarLimit)
	if err != nil {
		return IngestedBelief{}, domain.NewError("pipeline: find similar", domain.ErrKindBackendUnavailable, err)
	}

	ingested := IngestedBelief{}

	if len(similar) > 0 {
		closest := similar[0].Belief
		ingested.SimilarBeliefID = closest.ID

		conflict, err := p.extract.Conflicts.Conflicts(ctx, belief.Statement, closest.Statement, belief.Category, closest.Category)
		if err != nil {
			return IngestedBelief{}, domain.NewError("pipeline: detect conflict", domain.ErrKindExtractionFailed, err)
		}
		if conflict {
			ingested.ConflictDetected = true
			stored, err := p.beliefs.PutConflict(ctx, domain.NewConflict(agent, []domain.BeliefID{belief.ID, closest.ID}, "conflicting statements detected during ingestion"))
			if err != nil {
				return IngestedBelief{}, domain.NewError("pipeline: persist conflict", domain.ErrKindBackendUnavailable, err)
			}
			ingested.ConflictID = stored.ID
		}
	}

	stored, err := p.beliefs.Put(ctx, belief)
	if err != nil {
		return IngestedBelief{}, domain.NewError("pipeline: persist belief", domain.ErrKindBackendUnavailable, err)
	}
	ingested.Belief = stored

	if len(similar) > 0 && !ingested.ConflictDetected {
		closest := similar[0].Belief
		// Deprecate's first argument becomes the relationship's source (the
		// superseding belief); the newly stored belief supersedes the
		// previously closest match.
		rel, err := p.relationships.Deprecate(ctx, stored.ID, closest.ID, "superseded by newly ingested belief", agent)
		if err != nil {
			return IngestedBelief{}, domain.NewError("pipeline: link supersession", domain.ErrKindBackendUnavailable, err)
		}
		ingested.SupersessionEdge = &rel
	}

	return ingested, nil
}
