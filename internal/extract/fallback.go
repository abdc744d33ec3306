package extract

import (
	"context"
	"strings"

	"github.com/savantly-net/headkey/internal/domain"
)

// FallbackExtractor is the deterministic, dependency-free implementation of
// every port in this package, shipped unconditionally so the pipeline works
// with nothing wired in — the core analogue of the teacher's Validator
// default path when no LLM confirmation step is configured.
type FallbackExtractor struct{}

var (
	_ BeliefExtractor    = FallbackExtractor{}
	_ SimilarityScorer   = FallbackExtractor{}
	_ ConflictDetector   = FallbackExtractor{}
	_ Categorizer        = FallbackExtractor{}
	_ ConfidenceScorer   = FallbackExtractor{}
	_ CategoryExtractor  = FallbackExtractor{}
	_ TagExtractor       = FallbackExtractor{}
)

// ExtractBeliefs splits content into sentences and treats each non-blank one
// as a single candidate belief at a fixed moderate confidence. It never
// errors on blank content — it simply returns nothing.
func (FallbackExtractor) ExtractBeliefs(ctx context.Context, content string, agent domain.AgentID, category string) ([]ExtractedBelief, error) {
	if strings.TrimSpace(string(agent)) == "" {
		return nil, domain.NewError("extract: extract beliefs", domain.ErrKindInvalidInput, nil)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if category == "" {
		category = "general"
	}

	var out []ExtractedBelief
	for _, sentence := range splitSentences(content) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		out = append(out, ExtractedBelief{
			Statement:  sentence,
			Category:   category,
			Confidence: 0.5,
			Polarity:   !hasNegation(sentence),
			Reasoning:  "extracted by sentence split (no extraction port configured)",
			Tags:       nil,
		})
	}
	return out, nil
}

func splitSentences(content string) []string {
	replacer := strings.NewReplacer("!", ".", "?", ".", "\n", ".")
	return strings.Split(replacer.Replace(content), ".")
}

// Similarity is Jaccard over lowercased whitespace-split tokens; either
// blank input yields 0.
func (FallbackExtractor) Similarity(ctx context.Context, a, b string) (float64, error) {
	return jaccard(tokenize(a), tokenize(b)), nil
}

func tokenize(s string) map[string]struct{} {
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

// negationTokens is the fixed closed set of negation markers the fallback
// conflict detector checks for.
var negationTokens = []string{"not", "never", "no", "isn't", "doesn't", "don't", "won't", "can't", "cannot"}

func hasNegation(s string) bool {
	lower := strings.ToLower(s)
	for _, tok := range negationTokens {
		if containsWord(lower, tok) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	for _, f := range strings.Fields(s) {
		if strings.Trim(f, ".,!?;:\"'") == word {
			return true
		}
	}
	return false
}

// Conflicts reports a conflict when exactly one of a/b carries a negation
// token and the two are similar enough (fallback similarity > 0.6) to be
// talking about the same thing.
func (f FallbackExtractor) Conflicts(ctx context.Context, a, b string, categoryA, categoryB string) (bool, error) {
	negA, negB := hasNegation(a), hasNegation(b)
	if negA == negB {
		return false, nil
	}
	sim, _ := f.Similarity(ctx, a, b)
	return sim > 0.6, nil
}

var categoryKeywords = map[string][]string{
	"preference":   {"prefer", "like", "favorite", "enjoy", "love", "hate", "dislike"},
	"fact":         {"is a", "is the", "was born", "located in", "consists of"},
	"relationship": {"friend", "colleague", "partner", "sibling", "married", "works with"},
	"location":     {"lives in", "located", "based in", "resides", "address"},
	"opinion":      {"think", "believe", "feel that", "in my opinion", "seems"},
}

// Categorize buckets statement into one of a fixed set of keyword-matched
// categories, or "general" when nothing matches.
func (FallbackExtractor) Categorize(ctx context.Context, statement string) (string, error) {
	lower := strings.ToLower(statement)
	for _, bucket := range []string{"preference", "fact", "relationship", "location", "opinion"} {
		for _, kw := range categoryKeywords[bucket] {
			if strings.Contains(lower, kw) {
				return bucket, nil
			}
		}
	}
	return "general", nil
}

var certaintyMarkers = []string{"definitely", "certainly", "always", "never", "absolutely", "undoubtedly"}
var hedgingMarkers = []string{"maybe", "perhaps", "might", "possibly", "i think", "probably", "seems"}

// Confidence starts at 0.5 and adjusts for certainty/hedging language and a
// trusted-source context hint, clamped to [0,1].
func (FallbackExtractor) Confidence(ctx context.Context, content, statement, contextHint string) (float64, error) {
	score := 0.5
	lower := strings.ToLower(content + " " + statement)
	for _, m := range certaintyMarkers {
		if strings.Contains(lower, m) {
			score += 0.2
			break
		}
	}
	for _, m := range hedgingMarkers {
		if strings.Contains(lower, m) {
			score -= 0.2
			break
		}
	}
	if contextHint == "user_input" {
		score += 0.1
	}
	return domain.ClampConfidence(score), nil
}

// ExtractCategory picks the first available category whose label appears in
// content (case-insensitive substring), falling back to "Unknown" with low
// confidence — the validation pass in categorizer.go handles schema
// enforcement on top of this.
func (FallbackExtractor) ExtractCategory(ctx context.Context, content string, availableCategories []string, contextMetadata map[string]any) (CategoryExtraction, error) {
	lower := strings.ToLower(content)
	for _, cat := range availableCategories {
		if strings.Contains(lower, strings.ToLower(cat)) {
			return CategoryExtraction{Primary: cat, Confidence: 0.6, Reasoning: "keyword match against available category label"}, nil
		}
	}
	return CategoryExtraction{Primary: "Unknown", Confidence: 0.3, Reasoning: "no available category label matched"}, nil
}

// ExtractTags returns no tags or entities of its own — the core always
// layers the pattern-based extractors in patterns.go on top, so this
// fallback only needs to not error.
func (FallbackExtractor) ExtractTags(ctx context.Context, content, contextHint string) (TagExtraction, error) {
	return TagExtraction{}, nil
}

// Healthy reports the fallback is always available — it has no external
// dependency to probe.
func (FallbackExtractor) Healthy(ctx context.Context) error { return nil }
