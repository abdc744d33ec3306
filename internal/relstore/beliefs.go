package relstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/ports"
	"github.com/savantly-net/headkey/internal/queryutil"
)

var _ ports.BeliefStore = (*BeliefStore)(nil)

// BeliefStore implements ports.BeliefStore (and ports.ConflictStore) over
// the belief/belief_tag/belief_evidence/belief_conflict tables, grounded on
// the teacher's internal/storage/decisions.go: transaction-scoped upsert,
// ON CONFLICT-based versioning, and the buildDecisionWhereClause predicate
// style (generalized here to internal/queryutil.SQLWhere).
type BeliefStore struct {
	db *DB
}

// NewBeliefStore wraps an already-migrated DB.
func NewBeliefStore(db *DB) *BeliefStore {
	return &BeliefStore{db: db}
}

const beliefColumns = `id, agent_id, statement, category, confidence, active, version, created_at, last_updated, content_embedding, metadata`

// Put upserts a belief. version and created_at are computed by the database
// so concurrent writers never race on the bump (ON CONFLICT DO UPDATE
// increments belief.version and keeps the original created_at), the same
// atomic-upsert idiom as the teacher's search_outbox ON CONFLICT clauses.
func (s *BeliefStore) Put(ctx context.Context, b domain.Belief) (domain.Belief, error) {
	ctx, span := tracer.Start(ctx, "relstore.put_belief",
		trace.WithAttributes(attribute.String("headkey.agent_id", string(b.AgentID))))
	defer span.End()

	b.Confidence = domain.ClampConfidence(b.Confidence)

	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return domain.Belief{}, domain.NewError("relstore: begin put belief", domain.ErrKindBackendUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO belief (id, agent_id, statement, category, confidence, active, version, created_at, last_updated, content_embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, 1, now(), now(), $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			statement = EXCLUDED.statement,
			category = EXCLUDED.category,
			confidence = EXCLUDED.confidence,
			active = EXCLUDED.active,
			version = belief.version + 1,
			last_updated = now(),
			content_embedding = EXCLUDED.content_embedding,
			metadata = EXCLUDED.metadata
		RETURNING version, created_at, last_updated`,
		string(b.ID), string(b.AgentID), b.Statement, b.Category, b.Confidence, b.Active,
		toVector(b.ContentEmbedding), metadataOrEmpty(b.Metadata),
	)
	if err := row.Scan(&b.Version, &b.CreatedAt, &b.LastUpdated); err != nil {
		return domain.Belief{}, domain.NewError("relstore: put belief", domain.ErrKindBackendUnavailable, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM belief_tag WHERE belief_id = $1`, string(b.ID)); err != nil {
		return domain.Belief{}, domain.NewError("relstore: put belief tags", domain.ErrKindBackendUnavailable, err)
	}
	for _, tag := range b.Tags {
		if _, err := tx.Exec(ctx, `INSERT INTO belief_tag (belief_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`, string(b.ID), tag); err != nil {
			return domain.Belief{}, domain.NewError("relstore: put belief tags", domain.ErrKindBackendUnavailable, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM belief_evidence WHERE belief_id = $1`, string(b.ID)); err != nil {
		return domain.Belief{}, domain.NewError("relstore: put belief evidence", domain.ErrKindBackendUnavailable, err)
	}
	for _, memID := range b.EvidenceMemoryIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO belief_evidence (belief_id, memory_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, string(b.ID), memID); err != nil {
			return domain.Belief{}, domain.NewError("relstore: put belief evidence", domain.ErrKindBackendUnavailable, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Belief{}, domain.NewError("relstore: commit put belief", domain.ErrKindBackendUnavailable, err)
	}
	return b, nil
}

// PutMany upserts a batch, flushing one belief at a time inside its own
// transaction — simple and correct; batching multiple beliefs per tx is
// unnecessary here since each Put is already a single round trip with
// RETURNING.
func (s *BeliefStore) PutMany(ctx context.Context, beliefs []domain.Belief) ([]domain.Belief, error) {
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

func (s *BeliefStore) loadTagsAndEvidence(ctx context.Context, ids []string) (map[string][]string, map[string][]string, error) {
	tags := make(map[string][]string)
	evidence := make(map[string][]string)
	if len(ids) == 0 {
		return tags, evidence, nil
	}

	rows, err := s.db.pool.Query(ctx, `SELECT belief_id, tag FROM belief_tag WHERE belief_id = ANY($1)`, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("relstore: load tags: %w", err)
	}
	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("relstore: scan tag: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = s.db.pool.Query(ctx, `SELECT belief_id, memory_id FROM belief_evidence WHERE belief_id = ANY($1)`, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("relstore: load evidence: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, memID string
		if err := rows.Scan(&id, &memID); err != nil {
			return nil, nil, fmt.Errorf("relstore: scan evidence: %w", err)
		}
		evidence[id] = append(evidence[id], memID)
	}
	return tags, evidence, rows.Err()
}

func scanBelief(row pgx.Row) (domain.Belief, error) {
	var b domain.Belief
	var id, agentID string
	var emb *pgvector.Vector
	if err := row.Scan(&id, &agentID, &b.Statement, &b.Category, &b.Confidence, &b.Active, &b.Version, &b.CreatedAt, &b.LastUpdated, &emb, &b.Metadata); err != nil {
		return domain.Belief{}, err
	}
	b.ID = domain.BeliefID(id)
	b.AgentID = domain.AgentID(agentID)
	b.ContentEmbedding = fromVector(emb)
	return b, nil
}

func scanBeliefRows(rows pgx.Rows) ([]domain.Belief, error) {
	var out []domain.Belief
	for rows.Next() {
		b, err := scanBelief(rows)
		if err != nil {
			return nil, fmt.Errorf("relstore: scan belief: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *BeliefStore) hydrate(ctx context.Context, beliefs []domain.Belief) ([]domain.Belief, error) {
	ids := make([]string, len(beliefs))
	for i, b := range beliefs {
		ids[i] = string(b.ID)
	}
	tags, evidence, err := s.loadTagsAndEvidence(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range beliefs {
		beliefs[i].Tags = tags[string(beliefs[i].ID)]
		beliefs[i].EvidenceMemoryIDs = evidence[string(beliefs[i].ID)]
	}
	return beliefs, nil
}

// Get retrieves a single belief by ID.
func (s *BeliefStore) Get(ctx context.Context, id domain.BeliefID) (*domain.Belief, error) {
	row := s.db.pool.QueryRow(ctx, `SELECT `+beliefColumns+` FROM belief WHERE id = $1`, string(id))
	b, err := scanBelief(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewError("relstore: get belief", domain.ErrKindBackendUnavailable, err)
	}
	hydrated, err := s.hydrate(ctx, []domain.Belief{b})
	if err != nil {
		return nil, domain.NewError("relstore: get belief", domain.ErrKindBackendUnavailable, err)
	}
	return &hydrated[0], nil
}

// GetMany retrieves beliefs by ID.
func (s *BeliefStore) GetMany(ctx context.Context, ids []domain.BeliefID) ([]domain.Belief, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = string(id)
	}
	rows, err := s.db.pool.Query(ctx, `SELECT `+beliefColumns+` FROM belief WHERE id = ANY($1)`, strIDs)
	if err != nil {
		return nil, domain.NewError("relstore: get many beliefs", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	out, err := scanBeliefRows(rows)
	if err != nil {
		return nil, domain.NewError("relstore: get many beliefs", domain.ErrKindBackendUnavailable, err)
	}
	return s.hydrate(ctx, out)
}

// Delete removes a belief (cascading to its tags/evidence).
func (s *BeliefStore) Delete(ctx context.Context, id domain.BeliefID) (bool, error) {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM belief WHERE id = $1`, string(id))
	if err != nil {
		return false, domain.NewError("relstore: delete belief", domain.ErrKindBackendUnavailable, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *BeliefStore) query(ctx context.Context, where string, args []any, orderBy string) ([]domain.Belief, error) {
	sql := `SELECT ` + beliefColumns + ` FROM belief`
	if where != "" {
		sql += " WHERE " + where
	}
	if orderBy != "" {
		sql += " ORDER BY " + orderBy
	}
	rows, err := s.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("relstore: query beliefs: %w", err)
	}
	defer rows.Close()
	out, err := scanBeliefRows(rows)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, out)
}

// ForAgent lists beliefs for agent ordered by last_updated desc.
func (s *BeliefStore) ForAgent(ctx context.Context, agent domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	preds := []queryutil.Predicate{queryutil.ByAgent("agent_id", string(agent))}
	if !includeInactive {
		preds = append(preds, queryutil.ActiveOnly("active"))
	}
	where, args := queryutil.SQLWhere(preds, 1)
	out, err := s.query(ctx, where, args, "last_updated DESC")
	if err != nil {
		return nil, domain.NewError("relstore: for agent", domain.ErrKindBackendUnavailable, err)
	}
	return out, nil
}

// InCategory lists beliefs in category, across all agents when agent is nil.
func (s *BeliefStore) InCategory(ctx context.Context, category string, agent *domain.AgentID, includeInactive bool) ([]domain.Belief, error) {
	preds := []queryutil.Predicate{queryutil.CategoryEquals("category", category)}
	if agent != nil {
		preds = append(preds, queryutil.ByAgent("agent_id", string(*agent)))
	}
	if !includeInactive {
		preds = append(preds, queryutil.ActiveOnly("active"))
	}
	where, args := queryutil.SQLWhere(preds, 1)
	out, err := s.query(ctx, where, args, "last_updated DESC")
	if err != nil {
		return nil, domain.NewError("relstore: in category", domain.ErrKindBackendUnavailable, err)
	}
	return out, nil
}

// LowConfidence lists active beliefs at or below threshold, ascending.
func (s *BeliefStore) LowConfidence(ctx context.Context, threshold float64, agent *domain.AgentID) ([]domain.Belief, error) {
	preds := []queryutil.Predicate{
		{Field: "confidence", Op: "<=", Value: threshold},
		queryutil.ActiveOnly("active"),
	}
	if agent != nil {
		preds = append(preds, queryutil.ByAgent("agent_id", string(*agent)))
	}
	where, args := queryutil.SQLWhere(preds, 1)
	out, err := s.query(ctx, where, args, "confidence ASC")
	if err != nil {
		return nil, domain.NewError("relstore: low confidence", domain.ErrKindBackendUnavailable, err)
	}
	return out, nil
}

// SearchText runs an ILIKE substring search over statement (the pg_trgm
// index in migrations/001_initial.sql keeps this reasonably fast), ranked
// by confidence desc, mirroring the teacher's ILIKE fallback path in
// searchByILIKE.
func (s *BeliefStore) SearchText(ctx context.Context, query string, agent *domain.AgentID, limit int) ([]domain.Belief, error) {
	preds := []queryutil.Predicate{queryutil.ActiveOnly("active")}
	if agent != nil {
		preds = append(preds, queryutil.ByAgent("agent_id", string(*agent)))
	}
	needle := strings.TrimSpace(query)
	if needle != "" {
		preds = append(preds, queryutil.Predicate{Field: "statement", Op: "like", Value: "%" + needle + "%"})
	}
	where, args := queryutil.SQLWhere(preds, 1)
	if limit <= 0 {
		limit = 50
	}
	sql := `SELECT ` + beliefColumns + ` FROM belief`
	if where != "" {
		sql += " WHERE " + where
	}
	sql += fmt.Sprintf(" ORDER BY confidence DESC LIMIT %d", limit)
	rows, err := s.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewError("relstore: search text", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	out, err := scanBeliefRows(rows)
	if err != nil {
		return nil, domain.NewError("relstore: search text", domain.ErrKindBackendUnavailable, err)
	}
	return s.hydrate(ctx, out)
}

// FindSimilar ranks active beliefs by lowercased-token Jaccard overlap with
// statement — the document strategy's FindSimilar documents the same
// trade-off (see DESIGN.md): the interface has no query-embedding
// parameter, so the content_embedding column is not searched here.
func (s *BeliefStore) FindSimilar(ctx context.Context, statement string, agent *domain.AgentID, threshold float64, limit int) ([]ports.SimilarBelief, error) {
	var candidates []domain.Belief
	var err error
	if agent != nil {
		candidates, err = s.ForAgent(ctx, *agent, false)
	} else {
		candidates, err = s.query(ctx, "active = $1", []any{true}, "")
	}
	if err != nil {
		return nil, err
	}
	needle := tokenSet(statement)
	var out []ports.SimilarBelief
	for _, b := range candidates {
		sim := jaccard(needle, tokenSet(b.Statement))
		if sim >= threshold {
			out = append(out, ports.SimilarBelief{Belief: b, Similarity: sim})
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

// Count returns the number of beliefs for agent (or all agents when nil).
func (s *BeliefStore) Count(ctx context.Context, agent *domain.AgentID, includeInactive bool) (int, error) {
	preds := []queryutil.Predicate{}
	if agent != nil {
		preds = append(preds, queryutil.ByAgent("agent_id", string(*agent)))
	}
	if !includeInactive {
		preds = append(preds, queryutil.ActiveOnly("active"))
	}
	where, args := queryutil.SQLWhere(preds, 1)
	sql := `SELECT COUNT(*) FROM belief`
	if where != "" {
		sql += " WHERE " + where
	}
	var n int
	if err := s.db.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, domain.NewError("relstore: count", domain.ErrKindBackendUnavailable, err)
	}
	return n, nil
}

// DistributionByCategory aggregates active-belief counts by category via a
// GROUP BY, the native relational equivalent of the document strategy's
// client-side Aggregate (spec §4.4).
func (s *BeliefStore) DistributionByCategory(ctx context.Context, agent *domain.AgentID) (map[string]int, error) {
	preds := []queryutil.Predicate{queryutil.ActiveOnly("active")}
	if agent != nil {
		preds = append(preds, queryutil.ByAgent("agent_id", string(*agent)))
	}
	where, args := queryutil.SQLWhere(preds, 1)
	sql := `SELECT category, COUNT(*) FROM belief`
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " GROUP BY category"
	rows, err := s.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewError("relstore: distribution by category", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, domain.NewError("relstore: distribution by category", domain.ErrKindBackendUnavailable, err)
		}
		out[cat] = n
	}
	return out, rows.Err()
}

// DistributionByConfidenceBucket aggregates active-belief counts by bucket
// using a CASE WHEN, mirroring the teacher's relevance-scoring CASE
// expressions.
func (s *BeliefStore) DistributionByConfidenceBucket(ctx context.Context, agent *domain.AgentID) (ports.ConfidenceDistribution, error) {
	preds := []queryutil.Predicate{queryutil.ActiveOnly("active")}
	if agent != nil {
		preds = append(preds, queryutil.ByAgent("agent_id", string(*agent)))
	}
	where, args := queryutil.SQLWhere(preds, 1)
	sql := `SELECT
		CASE WHEN confidence >= 0.8 THEN 'high' WHEN confidence >= 0.5 THEN 'medium' ELSE 'low' END AS bucket,
		COUNT(*)
		FROM belief`
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " GROUP BY bucket"
	rows, err := s.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewError("relstore: distribution by confidence", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	out := ports.ConfidenceDistribution{}
	for rows.Next() {
		var bucket string
		var n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, domain.NewError("relstore: distribution by confidence", domain.ErrKindBackendUnavailable, err)
		}
		out[domain.ConfidenceBucket(bucket)] = n
	}
	return out, rows.Err()
}

// DistinctAgents lists every agent with at least one belief row.
func (s *BeliefStore) DistinctAgents(ctx context.Context) ([]domain.AgentID, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT DISTINCT agent_id FROM belief`)
	if err != nil {
		return nil, domain.NewError("relstore: distinct agents", domain.ErrKindBackendUnavailable, err)
	}
	defer rows.Close()
	var out []domain.AgentID
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, domain.NewError("relstore: distinct agents", domain.ErrKindBackendUnavailable, err)
		}
		out = append(out, domain.AgentID(a))
	}
	return out, rows.Err()
}

// Healthy pings the pool.
func (s *BeliefStore) Healthy(ctx context.Context) error {
	if err := s.db.pool.Ping(ctx); err != nil {
		return domain.NewError("relstore: health check", domain.ErrKindBackendUnavailable, err)
	}
	return nil
}
