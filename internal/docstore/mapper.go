package docstore

import (
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/savantly-net/headkey/internal/domain"
)

// beliefPayload builds the Qdrant payload for a belief point, mirroring the
// flat keyword/float payload shape the teacher's qdrant.go uses for
// decisions (org_id/agent_id/decision_type/confidence/valid_from_unix),
// generalized to the belief fields queries filter and aggregate on.
func beliefPayload(b domain.Belief) map[string]any {
	payload := map[string]any{
		"agent_id":          string(b.AgentID),
		"statement":         b.Statement,
		"category":          b.Category,
		"confidence":        b.Confidence,
		"active":            b.Active,
		"version":           float64(b.Version),
		"created_at_unix":   float64(b.CreatedAt.Unix()),
		"last_updated_unix": float64(b.LastUpdated.Unix()),
	}
	if len(b.EvidenceMemoryIDs) > 0 {
		payload["evidence_memory_ids"] = stringsToAny(b.EvidenceMemoryIDs)
	}
	if len(b.Tags) > 0 {
		payload["tags"] = stringsToAny(b.Tags)
	}
	for k, v := range b.Metadata {
		payload["meta_"+k] = v
	}
	return payload
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// beliefVectors returns a dense-vector spec when the belief carries an
// embedding, or nil when it doesn't (collections created without a vector
// config reject points with vectors, so callers must branch on this).
func beliefVectors(b domain.Belief) *qdrant.VectorsSelector {
	if len(b.ContentEmbedding) == 0 {
		return nil
	}
	vec := make([]float32, len(b.ContentEmbedding))
	for i, f := range b.ContentEmbedding {
		vec[i] = float32(f)
	}
	return qdrant.NewVectorsDense(vec)
}

func beliefPoint(b domain.Belief) *qdrant.PointStruct {
	ps := &qdrant.PointStruct{
		Id:      qdrant.NewID(string(b.ID)),
		Payload: qdrant.NewValueMap(beliefPayload(b)),
	}
	if v := beliefVectors(b); v != nil {
		ps.Vectors = v
	}
	return ps
}

// valueString/valueFloat/valueBool/valueStrings read a Qdrant payload value
// defensively, returning the zero value when the key is absent or the wrong
// kind is stored (a belief written by an older schema version should not
// blow up the reader).
func valueString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}

func valueFloat(payload map[string]*qdrant.Value, key string) float64 {
	v, ok := payload[key]
	if !ok || v == nil {
		return 0
	}
	return v.GetDoubleValue()
}

func valueBool(payload map[string]*qdrant.Value, key string) bool {
	v, ok := payload[key]
	if !ok || v == nil {
		return false
	}
	return v.GetBoolValue()
}

func valueStrings(payload map[string]*qdrant.Value, key string) []string {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil
	}
	lst := v.GetListValue()
	if lst == nil {
		return nil
	}
	out := make([]string, 0, len(lst.GetValues()))
	for _, item := range lst.GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}

// beliefFromPayload reconstructs a Belief from a point's ID and payload. It
// is the inverse of beliefPoint, minus the embedding (Qdrant is queried with
// WithVectors only when the caller needs it back, per spec §4.3).
func beliefFromPayload(id string, payload map[string]*qdrant.Value) domain.Belief {
	b := domain.Belief{
		ID:                domain.BeliefID(id),
		AgentID:           domain.AgentID(valueString(payload, "agent_id")),
		Statement:         valueString(payload, "statement"),
		Category:          valueString(payload, "category"),
		Confidence:        valueFloat(payload, "confidence"),
		Active:            valueBool(payload, "active"),
		Version:           int(valueFloat(payload, "version")),
		CreatedAt:         time.Unix(int64(valueFloat(payload, "created_at_unix")), 0).UTC(),
		LastUpdated:       time.Unix(int64(valueFloat(payload, "last_updated_unix")), 0).UTC(),
		EvidenceMemoryIDs: valueStrings(payload, "evidence_memory_ids"),
		Tags:              valueStrings(payload, "tags"),
	}
	for k, v := range payload {
		if len(k) > 5 && k[:5] == "meta_" {
			if b.Metadata == nil {
				b.Metadata = map[string]any{}
			}
			b.Metadata[k[5:]] = valueToAny(v)
		}
	}
	return b
}

func valueToAny(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch {
	case v.GetStringValue() != "":
		return v.GetStringValue()
	case v.GetBoolValue():
		return true
	default:
		return v.GetDoubleValue()
	}
}
