package relstore_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/relstore"
	"github.com/savantly-net/headkey/migrations"
)

var testDB *relstore.DB

// TestMain boots a throwaway Postgres+pgvector container and runs the
// embedded migrations once for the whole package, the same shared-container
// shape the teacher uses in internal/storage/storage_test.go.
func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "headkey",
			"POSTGRES_PASSWORD": "headkey",
			"POSTGRES_DB":       "headkey",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("postgres://headkey:headkey@%s:%s/headkey?sslmode=disable", host, port.Port())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	testDB, err = relstore.New(ctx, dsn, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		os.Exit(1)
	}
	if err := testDB.RunMigrations(ctx, migrations.FS); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestBeliefPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := relstore.NewBeliefStore(testDB)

	b := domain.Belief{
		ID:         domain.NewBeliefID(),
		AgentID:    "agent-belief-rt",
		Statement:  "The sky is blue",
		Category:   "Observation",
		Confidence: 0.9,
		Active:     true,
		Tags:       []string{"color", "sky"},
	}

	stored, err := store.Put(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "The sky is blue", got.Statement)
	assert.ElementsMatch(t, []string{"color", "sky"}, got.Tags)

	stored.Statement = "The sky is often blue"
	updated, err := store.Put(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, stored.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestBeliefForAgentAndCategory(t *testing.T) {
	ctx := context.Background()
	store := relstore.NewBeliefStore(testDB)
	agent := domain.AgentID("agent-belief-category")

	_, err := store.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "s1", Category: "Fact", Confidence: 0.9, Active: true})
	require.NoError(t, err)
	_, err = store.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "s2", Category: "Preference", Confidence: 0.2, Active: true})
	require.NoError(t, err)

	all, err := store.ForAgent(ctx, agent, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	facts, err := store.InCategory(ctx, "Fact", &agent, false)
	require.NoError(t, err)
	assert.Len(t, facts, 1)

	low, err := store.LowConfidence(ctx, 0.5, &agent)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "s2", low[0].Statement)
}

func TestBeliefDelete(t *testing.T) {
	ctx := context.Background()
	store := relstore.NewBeliefStore(testDB)

	b, err := store.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: "agent-delete", Statement: "temp"})
	require.NoError(t, err)

	deleted, err := store.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConflictLifecycle(t *testing.T) {
	ctx := context.Background()
	store := relstore.NewBeliefStore(testDB)
	agent := domain.AgentID("agent-conflict")

	b1, err := store.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "a"})
	require.NoError(t, err)
	b2, err := store.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "not a"})
	require.NoError(t, err)

	conflict := domain.NewConflict(agent, []domain.BeliefID{b1.ID, b2.ID}, "direct contradiction")
	stored, err := store.PutConflict(ctx, conflict)
	require.NoError(t, err)

	unresolved, err := store.Unresolved(ctx, &agent)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.ElementsMatch(t, []domain.BeliefID{b1.ID, b2.ID}, unresolved[0].ConflictingBeliefIDs)

	stored.Resolve("kept a, dropped not a")
	_, err = store.PutConflict(ctx, stored)
	require.NoError(t, err)

	unresolved, err = store.Unresolved(ctx, &agent)
	require.NoError(t, err)
	assert.Empty(t, unresolved)

	removed, err := store.RemoveConflict(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestRelationshipCreateAndQuery(t *testing.T) {
	ctx := context.Background()
	beliefs := relstore.NewBeliefStore(testDB)
	rels := relstore.NewRelationshipStore(testDB, beliefs)
	agent := domain.AgentID("agent-relationship")

	src, err := beliefs.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "old fact"})
	require.NoError(t, err)
	dst, err := beliefs.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "new fact"})
	require.NoError(t, err)

	rel, err := rels.Create(ctx, src.ID, dst.ID, domain.RelSupports, 0.7, agent, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RelSupports, rel.Type)

	outgoing, err := rels.Outgoing(ctx, src.ID, agent)
	require.NoError(t, err)
	assert.Len(t, outgoing, 1)

	updated, err := rels.UpdateStrength(ctx, rel.ID, agent, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, updated.Strength)

	deactivated, err := rels.Deactivate(ctx, rel.ID, agent)
	require.NoError(t, err)
	assert.True(t, deactivated)
}

func TestRelationshipCreateRejectsMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	beliefs := relstore.NewBeliefStore(testDB)
	rels := relstore.NewRelationshipStore(testDB, beliefs)
	agent := domain.AgentID("agent-relationship-missing")

	src, err := beliefs.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "exists"})
	require.NoError(t, err)

	_, err = rels.Create(ctx, src.ID, domain.NewBeliefID(), domain.RelSupports, 0.5, agent, nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrKindBeliefMissing, domain.KindOf(err))
}

func TestRelationshipOrphansAndSelfRefs(t *testing.T) {
	ctx := context.Background()
	beliefs := relstore.NewBeliefStore(testDB)
	rels := relstore.NewRelationshipStore(testDB, beliefs)
	agent := domain.AgentID("agent-relationship-structure")

	a, err := beliefs.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "a"})
	require.NoError(t, err)
	b, err := beliefs.Put(ctx, domain.Belief{ID: domain.NewBeliefID(), AgentID: agent, Statement: "b"})
	require.NoError(t, err)

	_, err = rels.Create(ctx, a.ID, b.ID, domain.RelRelatesTo, 0.5, agent, nil)
	require.NoError(t, err)

	_, err = beliefs.Delete(ctx, b.ID)
	require.NoError(t, err)

	orphans, err := rels.Orphans(ctx, agent)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)
}
