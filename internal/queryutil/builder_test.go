package queryutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

// TestSQLitePlaceholderWhere_ExecutesAgainstRealEngine exercises the
// query-builder output against a real (pure-Go, in-process) SQL engine
// rather than just asserting string shape, catching placeholder/ordering
// mistakes a string-only test would miss.
func TestSQLitePlaceholderWhere_ExecutesAgainstRealEngine(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE belief (id TEXT, agent_id TEXT, active INTEGER, confidence REAL, category TEXT)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO belief VALUES
		('b1', 'a1', 1, 0.9, 'fact'),
		('b2', 'a1', 0, 0.9, 'fact'),
		('b3', 'a1', 1, 0.2, 'fact'),
		('b4', 'a2', 1, 0.9, 'fact')`)
	require.NoError(t, err)

	preds := []Predicate{
		ByAgent("agent_id", "a1"),
		ActiveOnly("active"),
		ConfidenceRange("confidence", 0.5),
	}
	where, args := SQLitePlaceholderWhere(preds)
	// ActiveOnly stores `true`; sqlite has no bool type, encode as 1.
	for i, a := range args {
		if b, ok := a.(bool); ok {
			if b {
				args[i] = 1
			} else {
				args[i] = 0
			}
		}
	}

	rows, err := db.Query("SELECT id FROM belief WHERE "+where, args...)
	require.NoError(t, err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"b1"}, ids)
}

func TestSQLWhere(t *testing.T) {
	preds := []Predicate{ByAgent("agent_id", "a1"), ActiveOnly("active")}
	clause, args := SQLWhere(preds, 3)
	require.Equal(t, "agent_id = $3 AND active = $4", clause)
	require.Equal(t, []any{"a1", true}, args)
}

func TestSQLWhereEmpty(t *testing.T) {
	clause, args := SQLWhere(nil, 1)
	require.Empty(t, clause)
	require.Nil(t, args)
}

func TestOrAnd(t *testing.T) {
	require.Equal(t, "(a = 1) OR (b = 2)", Or("a = 1", "b = 2"))
	require.Equal(t, "(a = 1)", Or("a = 1", ""))
	require.Equal(t, "(a = 1) AND (b = 2)", And("a = 1", "b = 2"))
}
