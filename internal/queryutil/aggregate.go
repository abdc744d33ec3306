package queryutil

// Aggregate is a generic terms-aggregation helper: it counts items by a
// derived key, the shape both storage strategies need for
// distribution_by_category (terms on Postgres GROUP BY / Qdrant payload
// scroll) and type_distribution.
func Aggregate[T any, K comparable](items []T, key func(T) K) map[K]int {
	out := make(map[K]int)
	for _, it := range items {
		out[key(it)]++
	}
	return out
}

// AggregateAvg computes, per key, the average of value(item) across items
// sharing that key (used by avg_strength_by_type).
func AggregateAvg[T any, K comparable](items []T, key func(T) K, value func(T) float64) map[K]float64 {
	sums := make(map[K]float64)
	counts := make(map[K]int)
	for _, it := range items {
		k := key(it)
		sums[k] += value(it)
		counts[k]++
	}
	out := make(map[K]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out
}

// SearchConfig is the shared configuration every search request across both
// strategies carries: a capped page size, a timeout floored at 1000ms, and
// whether total hits are tracked.
type SearchConfig struct {
	TimeoutMS     int
	MaxResults    int
	TrackTotal    bool
	DefaultSortBy string // "_score desc" equivalent
}

// NewSearchConfig applies the configuration-surface floors from §6:
// search_timeout_ms floored at 1000, max_results floored at 1.
func NewSearchConfig(timeoutMS, maxResults int) SearchConfig {
	if timeoutMS < 1000 {
		timeoutMS = 1000
	}
	if maxResults < 1 {
		maxResults = 1
	}
	return SearchConfig{
		TimeoutMS:     timeoutMS,
		MaxResults:    maxResults,
		TrackTotal:    true,
		DefaultSortBy: "_score desc",
	}
}
