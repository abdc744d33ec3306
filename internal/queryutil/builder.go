// Package queryutil provides shared query-construction and aggregation
// helpers used by the document and relational storage strategies. GraphQuery
// never calls into this package directly (spec §4.7) — it composes
// BeliefStore/RelationshipStore only.
package queryutil

import (
	"fmt"
	"strings"
)

// Predicate is a single named condition with its bind value(s), backend
// agnostic. Strategies translate Predicates into a Qdrant filter condition
// or a SQL fragment.
type Predicate struct {
	Field string
	Op    string // "=", ">=", "<=", ">", "<", "like"
	Value any
}

// ByAgent builds the standard "scoped to one agent" predicate.
func ByAgent(agentField string, agentID string) Predicate {
	return Predicate{Field: agentField, Op: "=", Value: agentID}
}

// ActiveOnly builds the standard "active = true" predicate.
func ActiveOnly(activeField string) Predicate {
	return Predicate{Field: activeField, Op: "=", Value: true}
}

// ConfidenceRange builds a ">= min" predicate; callers needing both ends
// compose two calls.
func ConfidenceRange(confidenceField string, min float64) Predicate {
	return Predicate{Field: confidenceField, Op: ">=", Value: min}
}

// CategoryEquals builds an "category = value" predicate.
func CategoryEquals(categoryField, category string) Predicate {
	return Predicate{Field: categoryField, Op: "=", Value: category}
}

// SQLWhere renders a set of Predicates ANDed together into a parameterized
// SQL WHERE clause (without the leading "WHERE"), starting bind placeholders
// at argOffset ($N style, Postgres/CockroachDB dialect). Returns the clause
// fragment and the ordered argument list.
func SQLWhere(preds []Predicate, argOffset int) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	var parts []string
	args := make([]any, 0, len(preds))
	n := argOffset
	for _, p := range preds {
		op := p.Op
		if op == "like" {
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", p.Field, n))
		} else {
			parts = append(parts, fmt.Sprintf("%s %s $%d", p.Field, op, n))
		}
		args = append(args, p.Value)
		n++
	}
	return strings.Join(parts, " AND "), args
}

// SQLitePlaceholderWhere renders the same predicates using "?" placeholders,
// for the modernc.org/sqlite-backed query-builder unit tests.
func SQLitePlaceholderWhere(preds []Predicate) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	var parts []string
	args := make([]any, 0, len(preds))
	for _, p := range preds {
		op := p.Op
		if op == "like" {
			parts = append(parts, fmt.Sprintf("%s LIKE ?", p.Field))
		} else {
			parts = append(parts, fmt.Sprintf("%s %s ?", p.Field, op))
		}
		args = append(args, p.Value)
	}
	return strings.Join(parts, " AND "), args
}

// Or joins two already-rendered clause fragments with OR, parenthesizing
// each side that is non-empty. Empty sides are dropped.
func Or(clauses ...string) string {
	var nonEmpty []string
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			nonEmpty = append(nonEmpty, "("+c+")")
		}
	}
	return strings.Join(nonEmpty, " OR ")
}

// And joins already-rendered clause fragments with AND.
func And(clauses ...string) string {
	var nonEmpty []string
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			nonEmpty = append(nonEmpty, "("+c+")")
		}
	}
	return strings.Join(nonEmpty, " AND ")
}
