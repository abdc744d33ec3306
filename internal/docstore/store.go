package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
	"github.com/savantly-net/headkey/internal/queryutil"
)

// Config configures a Store's collection layout and vector dimensionality.
type Config struct {
	BeliefPrefix  string
	VersionSuffix string
	Dims          uint64
	// AutoCreateIndices controls whether a missing collection (and its
	// field indices) is created on first use. When false, a missing
	// collection is a backend-unavailable error instead — for deployments
	// that provision Qdrant collections out of band (spec §6's
	// HEADKEY_AUTO_CREATE_INDICES).
	AutoCreateIndices bool
}

func (c Config) withDefaults() Config {
	if c.BeliefPrefix == "" {
		c.BeliefPrefix = DefaultBeliefPrefix
	}
	if c.VersionSuffix == "" {
		c.VersionSuffix = DefaultVersionSuffix
	}
	return c
}

// Store implements ports.BeliefStore (and ports.ConflictStore) over Qdrant,
// one collection per agent, generalizing the teacher's single-collection
// QdrantIndex to the multi-tenant-by-collection layout spec §4.3 describes.
type Store struct {
	client *qdrant.Client
	cfg    Config
	logger *slog.Logger

	indices *queryutil.IndexCache

	agentsMu sync.RWMutex
	agents   map[domain.AgentID]struct{}
}

var _ ports.BeliefStore = (*Store)(nil)

// NewStore wraps an already-connected Qdrant client.
func NewStore(client *qdrant.Client, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:  client,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		indices: queryutil.NewIndexCache(),
		agents:  make(map[domain.AgentID]struct{}),
	}
}

func (s *Store) collectionFor(agent domain.AgentID) string {
	return CollectionName(s.cfg.BeliefPrefix, string(agent), s.cfg.VersionSuffix)
}

func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// ensureCollection creates the agent's belief collection on first use,
// mirroring the teacher's EnsureCollection (HNSW params + keyword/float
// payload indexes), routed through the index-existence cache so concurrent
// callers don't race to create the same collection (spec §5).
func (s *Store) ensureCollection(ctx context.Context, agent domain.AgentID) error {
	name := s.collectionFor(agent)
	return s.indices.EnsureExists(name, func() error {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("docstore: check collection exists: %w", err)
		}
		if exists {
			return nil
		}
		if !s.cfg.AutoCreateIndices {
			return fmt.Errorf("docstore: collection %q does not exist and auto-create is disabled", name)
		}

		m := uint64(16)
		efConstruct := uint64(128)
		dims := s.cfg.Dims
		if dims == 0 {
			dims = 1
		}
		if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dims,
				Distance: qdrant.Distance_Cosine,
				HnswConfig: &qdrant.HnswConfigDiff{
					M:           &m,
					EfConstruct: &efConstruct,
				},
			}),
		}); err != nil {
			return fmt.Errorf("docstore: create collection %q: %w", name, err)
		}

		keywordType := qdrant.FieldType_FieldTypeKeyword
		for _, field := range []string{"agent_id", "category"} {
			if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: name,
				FieldName:      field,
				FieldType:      &keywordType,
			}); err != nil {
				return fmt.Errorf("docstore: create index on %q: %w", field, err)
			}
		}
		floatType := qdrant.FieldType_FieldTypeFloat
		if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      "confidence",
			FieldType:      &floatType,
		}); err != nil {
			return fmt.Errorf("docstore: create index on confidence: %w", err)
		}
		return nil
	}, isAlreadyExists)
}

func (s *Store) rememberAgent(agent domain.AgentID) {
	s.agentsMu.Lock()
	s.agents[agent] = struct{}{}
	s.agentsMu.Unlock()
}

func (s *Store) knownAgents() []domain.AgentID {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	out := make([]domain.AgentID, 0, len(s.agents))
	for a := range s.agents {
		out = append(out, a)
	}
	return out
}

// Put upserts a single belief, preserving CreatedAt and bumping Version if a
// record with this ID already exists, matching the BeliefStore contract.
func (s *Store) Put(ctx context.Context, b domain.Belief) (domain.Belief, error) {
	if existing, err := s.Get(ctx, b.ID); err == nil && existing != nil {
		b.CreatedAt = existing.CreatedAt
		b.Version = existing.Version + 1
	} else {
		b.Version = 1
	}
	b.Confidence = domain.ClampConfidence(b.Confidence)

	if err := s.ensureCollection(ctx, b.AgentID); err != nil {
		return domain.Belief{}, domain.NewError("docstore: put", domain.ErrKindBackendUnavailable, err)
	}
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionFor(b.AgentID),
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{beliefPoint(b)},
	}); err != nil {
		return domain.Belief{}, domain.NewError("docstore: put", domain.ErrKindBackendUnavailable, err)
	}
	s.rememberAgent(b.AgentID)
	return b, nil
}

// PutMany upserts a batch of beliefs with one Put call per belief, stopping
// at the first error and returning the beliefs stored before it.
func (s *Store) PutMany(ctx context.Context, beliefs []domain.Belief) ([]domain.Belief, error) {
	out := make([]domain.Belief, 0, len(beliefs))
	for _, b := range beliefs {
		stored, err := s.Put(ctx, b)
		if err != nil {
			return out, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// findByID scans every known agent's collection for id, returning the
// owning agent alongside the point once found. Get/Delete/RemoveConflict
// take no agent parameter, so the document strategy resolves ownership
// through the in-memory agent registry populated on write (see DESIGN.md).
func (s *Store) findByID(ctx context.Context, id domain.BeliefID) (domain.AgentID, *domain.Belief, error) {
	want := []*qdrant.PointId{qdrant.NewID(string(id))}
	for _, agent := range s.knownAgents() {
		points, err := s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: s.collectionFor(agent),
			Ids:            want,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil || len(points) == 0 {
			continue
		}
		b := beliefFromPayload(points[0].Id.GetUuid(), points[0].Payload)
		return agent, &b, nil
	}
	return "", nil, nil
}

// Get retrieves a single belief by ID.
func (s *Store) Get(ctx context.Context, id domain.BeliefID) (*domain.Belief, error) {
	_, b, err := s.findByID(ctx, id)
	if err != nil {
		return nil, domain.NewError("docstore: get belief", domain.ErrKindBackendUnavailable, err)
	}
	return b, nil
}

// GetMany retrieves a set of beliefs by ID, scanning every known agent's
// collection for presence (spec §9's open question on multi-id lookup
// resolved in favor of "scan + membership check", matching
// internal/relationship.ValidateEndpoints' contract).
func (s *Store) GetMany(ctx context.Context, ids []domain.BeliefID) ([]domain.Belief, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	want := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		want[i] = qdrant.NewID(string(id))
	}

	var out []domain.Belief
	for _, agent := range s.knownAgents() {
		points, err := s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: s.collectionFor(agent),
			Ids:            want,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			continue
		}
		for _, p := range points {
			out = append(out, beliefFromPayload(p.Id.GetUuid(), p.Payload))
		}
	}
	return out, nil
}

// Delete removes a belief wherever it lives.
func (s *Store) Delete(ctx context.Context, id domain.BeliefID) (bool, error) {
	agent, b, err := s.findByID(ctx, id)
	if err != nil {
		return false, domain.NewError("docstore: delete", domain.ErrKindBackendUnavailable, err)
	}
	if b == nil {
		return false, nil
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionFor(agent),
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: []*qdrant.PointId{qdrant.NewID(string(id))}},
			},
		},
	})
	if err != nil {
		return false, domain.NewError("docstore: delete", domain.ErrKindBackendUnavailable, err)
	}
	return true, nil
}

// scrollAll pages through every point in an agent's collection, the
// client-side aggregation primitive spec §4.3 builds distribution and
// text-search queries on top of. Qdrant's Scroll follows the same
// "{Method}(ctx, &qdrant.{Method}Points{...})" request-struct shape the
// teacher's qdrant.go already exercises for Query/Upsert/Delete.
func (s *Store) scrollAll(ctx context.Context, agent domain.AgentID) ([]domain.Belief, error) {
	name := s.collectionFor(agent)
	const pageSize = 256
	var out []domain.Belief
	var offset *qdrant.PointId

	for {
		resp, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Limit:          qdrant.PtrOf(uint32(pageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("docstore: scroll %q: %w", name, err)
		}
		for _, p := range resp {
			out = append(out, beliefFromPayload(p.Id.GetUuid(), p.Payload))
		}
		if len(resp) < pageSize {
			return out, nil
		}
		offset = resp[len(resp)-1].Id
	}
}

func (s *Store) agentsOrKnown(agent *domain.AgentID) []domain.AgentID {
	if agent != nil {
		return []domain.AgentID{*agent}
	}
	return s.knownAgents()
}

// ForAgent lists beliefs owned by agent, ordered by LastUpdated desc.
func (s *Store) ForAgent(ctx context.Context, agent domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	all, err := s.scrollAll(ctx, agent)
	if err != nil {
		return nil, domain.NewError("docstore: for agent", domain.ErrKindBackendUnavailable, err)
	}
	out := make([]domain.Belief, 0, len(all))
	for _, b := range all {
		if includeInactive || b.Active {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out, nil
}

// InCategory lists beliefs in category, across every known agent when agent
// is nil.
func (s *Store) InCategory(ctx context.Context, category string, agent *domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	var out []domain.Belief
	for _, a := range s.agentsOrKnown(agent) {
		all, err := s.scrollAll(ctx, a)
		if err != nil {
			return nil, domain.NewError("docstore: in category", domain.ErrKindBackendUnavailable, err)
		}
		for _, b := range all {
			if b.Category == category && (includeInactive || b.Active) {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// LowConfidence lists active beliefs at or below threshold, sorted ascending.
func (s *Store) LowConfidence(ctx context.Context, threshold float64, agent *domain.AgentID) ([]domain.Belief, error) {
	var out []domain.Belief
	for _, a := range s.agentsOrKnown(agent) {
		all, err := s.scrollAll(ctx, a)
		if err != nil {
			return nil, domain.NewError("docstore: low confidence", domain.ErrKindBackendUnavailable, err)
		}
		for _, b := range all {
			if b.Active && b.Confidence <= threshold {
				out = append(out, b)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence < out[j].Confidence })
	return out, nil
}

// SearchText performs a client-side substring/token scan over statements,
// ranked by confidence desc and capped at limit. The document strategy has
// no full-text payload index configured (the teacher's qdrant.go never
// builds one), so spec §4.3 resolves full-text search by scrolling and
// matching in-process rather than relying on Qdrant server-side text match.
func (s *Store) SearchText(ctx context.Context, query string, agent *domain.AgentID, limit int) ([]domain.Belief, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	var out []domain.Belief
	for _, a := range s.agentsOrKnown(agent) {
		all, err := s.scrollAll(ctx, a)
		if err != nil {
			return nil, domain.NewError("docstore: search text", domain.ErrKindBackendUnavailable, err)
		}
		for _, b := range all {
			if !b.Active {
				continue
			}
			if needle == "" || strings.Contains(strings.ToLower(b.Statement), needle) {
				out = append(out, b)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindSimilar ranks candidates against statement by lowercased-token Jaccard
// overlap. The interface carries no query embedding, so the vectors that
// beliefPoint/beliefVectors store for embedded beliefs are not searched
// here (the relational strategy's FindSimilar does not search its
// embeddings either); token overlap is the only similarity signal used
// (see DESIGN.md).
func (s *Store) FindSimilar(ctx context.Context, statement string, agent *domain.AgentID, threshold float64, limit int) ([]ports.SimilarBelief, error) {
	needle := tokenSet(statement)
	var out []ports.SimilarBelief
	for _, a := range s.agentsOrKnown(agent) {
		all, err := s.scrollAll(ctx, a)
		if err != nil {
			return nil, domain.NewError("docstore: find similar", domain.ErrKindBackendUnavailable, err)
		}
		for _, b := range all {
			if !b.Active {
				continue
			}
			sim := jaccard(needle, tokenSet(b.Statement))
			if sim >= threshold {
				out = append(out, ports.SimilarBelief{Belief: b, Similarity: sim})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Count returns the number of beliefs for agent (or every known agent when
// nil), active-only unless includeInactive.
func (s *Store) Count(ctx context.Context, agent *domain.AgentID, includeInactive bool) (int, error) {
	n := 0
	for _, a := range s.agentsOrKnown(agent) {
		all, err := s.scrollAll(ctx, a)
		if err != nil {
			return 0, domain.NewError("docstore: count", domain.ErrKindBackendUnavailable, err)
		}
		for _, b := range all {
			if includeInactive || b.Active {
				n++
			}
		}
	}
	return n, nil
}

// DistributionByCategory aggregates active-belief counts by category via
// queryutil.Aggregate over a full scroll, the client-side aggregation the
// document strategy substitutes for a relational GROUP BY (spec §4.3).
func (s *Store) DistributionByCategory(ctx context.Context, agent *domain.AgentID) (map[string]int, error) {
	var active []domain.Belief
	for _, a := range s.agentsOrKnown(agent) {
		all, err := s.scrollAll(ctx, a)
		if err != nil {
			return nil, domain.NewError("docstore: distribution by category", domain.ErrKindBackendUnavailable, err)
		}
		for _, b := range all {
			if b.Active {
				active = append(active, b)
			}
		}
	}
	return queryutil.Aggregate(active, func(b domain.Belief) string { return b.Category }), nil
}

// DistributionByConfidenceBucket aggregates active-belief counts by bucket.
func (s *Store) DistributionByConfidenceBucket(ctx context.Context, agent *domain.AgentID) (ports.ConfidenceDistribution, error) {
	var active []domain.Belief
	for _, a := range s.agentsOrKnown(agent) {
		all, err := s.scrollAll(ctx, a)
		if err != nil {
			return nil, domain.NewError("docstore: distribution by confidence", domain.ErrKindBackendUnavailable, err)
		}
		for _, b := range all {
			if b.Active {
				active = append(active, b)
			}
		}
	}
	raw := queryutil.Aggregate(active, func(b domain.Belief) domain.ConfidenceBucket { return domain.BucketFor(b.Confidence) })
	return ports.ConfidenceDistribution(raw), nil
}

// DistinctAgents returns every agent this store instance has written a
// belief for. Backed by an in-memory registry populated on write rather
// than a Qdrant collection listing, since collection names are a lossy,
// one-way sanitization of the agent ID (see DESIGN.md).
func (s *Store) DistinctAgents(ctx context.Context) ([]domain.AgentID, error) {
	return s.knownAgents(), nil
}

// Healthy reports whether the underlying Qdrant cluster is reachable.
func (s *Store) Healthy(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return domain.NewError("docstore: health check", domain.ErrKindBackendUnavailable, err)
	}
	return nil
}
