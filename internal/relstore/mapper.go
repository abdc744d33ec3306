package relstore

import (
	"github.com/pgvector/pgvector-go"
)

func toVector(embedding []float64) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	f32 := make([]float32, len(embedding))
	for i, f := range embedding {
		f32[i] = float32(f)
	}
	v := pgvector.NewVector(f32)
	return &v
}

func fromVector(v *pgvector.Vector) []float64 {
	if v == nil {
		return nil
	}
	slice := v.Slice()
	out := make([]float64, len(slice))
	for i, f := range slice {
		out[i] = float64(f)
	}
	return out
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
