// Package headkey is the public API for embedding the belief/knowledge-
// graph storage engine in another Go program: construct an App against
// either storage backend, then call Ingest/GetBelief/Reachable
// or hand the App's pipeline and graph query surface to an MCP server.
//
// The import graph enforces a strict no-cycle rule: headkey (root) imports
// internal/*, but internal/* never imports headkey (root).
package headkey

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/savantly-net/headkey/internal/config"
	"github.com/savantly-net/headkey/internal/docstore"
	"github.com/savantly-net/headkey/internal/domain"
	"github.com/savantly-net/headkey/internal/extract"
	"github.com/savantly-net/headkey/internal/graph"
	"github.com/savantly-net/headkey/internal/pipeline"
	"github.com/savantly-net/headkey/internal/ports"
	"github.com/savantly-net/headkey/internal/relstore"
	"github.com/savantly-net/headkey/internal/telemetry"
	"github.com/savantly-net/headkey/migrations"
)

// App wires one storage backend (relational or document, per config.Config
// .Backend) into the ingestion pipeline and graph query surface.
type App struct {
	cfg           config.Config
	logger        *slog.Logger
	beliefs       ports.BeliefStore
	relationships ports.RelationshipStore
	pipeline      *pipeline.Pipeline
	graph         *graph.Query

	relDB             *relstore.DB // non-nil only for the relational backend; closed on Close.
	shutdownTelemetry telemetry.Shutdown
}

// New loads configuration (unless WithConfig overrides it), connects the
// selected storage backend, runs relational migrations if applicable, and
// wires the extraction engine and pipeline. Callers must call Close when
// done.
func New(ctx context.Context, opts ...Option) (*App, error) {
	resolved := &resolvedOptions{}
	for _, opt := range opts {
		opt(resolved)
	}

	cfg := resolved.cfg
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("headkey: load config: %w", err)
		}
		cfg = &loaded
	}

	logger := resolved.logger
	if logger == nil {
		logger = slog.Default()
	}

	version := resolved.version
	if version == "" {
		version = "dev"
	}

	shutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("headkey: init telemetry: %w", err)
	}

	app := &App{cfg: *cfg, logger: logger, shutdownTelemetry: shutdown}

	switch cfg.Backend {
	case "relational":
		if err := app.wireRelational(ctx); err != nil {
			return nil, err
		}
	case "document":
		if err := app.wireDocument(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("headkey: unknown backend %q", cfg.Backend)
	}

	engine := extract.NewEngine(cfg.AvailableCategories, cfg.CategorySubcategories)
	applyExtractOverrides(engine, resolved)

	app.pipeline = pipeline.New(app.beliefs, app.relationships, engine, pipeline.Options{})
	app.graph = graph.New(app.beliefs, app.relationships)

	return app, nil
}

func applyExtractOverrides(e *extract.Engine, o *resolvedOptions) {
	if o.beliefs != nil {
		e.Beliefs = o.beliefs
	}
	if o.similarity != nil {
		e.Similarity = o.similarity
	}
	if o.conflicts != nil {
		e.Conflicts = o.conflicts
	}
	if o.category != nil {
		e.Category = o.category
	}
	if o.confidence != nil {
		e.Confidence = o.confidence
	}
	if o.categoryExt != nil {
		e.CategoryExt = o.categoryExt
	}
	if o.tags != nil {
		e.Tags = o.tags
	}
}

func (a *App) wireRelational(ctx context.Context) error {
	db, err := relstore.New(ctx, a.cfg.DatabaseURL, a.logger)
	if err != nil {
		return fmt.Errorf("headkey: connect relational backend: %w", err)
	}
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		db.Close()
		return fmt.Errorf("headkey: run migrations: %w", err)
	}
	a.relDB = db
	a.beliefs = relstore.NewBeliefStore(db)
	a.relationships = relstore.NewRelationshipStore(db, a.beliefs)
	return nil
}

func (a *App) wireDocument(ctx context.Context) error {
	host, port, useTLS, err := parseQdrantURL(a.cfg.QdrantURL)
	if err != nil {
		return fmt.Errorf("headkey: %w", err)
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: a.cfg.QdrantAPIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return fmt.Errorf("headkey: connect document backend: %w", err)
	}
	dsCfg := docstore.Config{
		Dims:              uint64(a.cfg.EmbeddingDims),
		AutoCreateIndices: a.cfg.AutoCreateIndices,
	}
	a.beliefs = docstore.NewStore(client, dsCfg, a.logger)
	a.relationships = docstore.NewRelationshipStore(client, dsCfg, a.beliefs)
	return nil
}

// parseQdrantURL extracts host/port/TLS from a Qdrant REST or gRPC URL,
// defaulting to the gRPC port when the REST port (6333) is given —
// generalizes the teacher's internal/search qdrant URL parsing.
func parseQdrantURL(raw string) (host string, port int, useTLS bool, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant URL: %w", err)
	}
	host = u.Hostname()
	if host == "" {
		host = raw
	}
	useTLS = u.Scheme == "https" || u.Scheme == "grpcs"

	if portStr := u.Port(); portStr != "" {
		p, convErr := strconv.Atoi(portStr)
		if convErr != nil {
			return "", 0, false, fmt.Errorf("invalid port in qdrant URL: %q", portStr)
		}
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}
	return host, port, useTLS, nil
}

// Close releases the backend connection and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	if a.relDB != nil {
		a.relDB.Close()
	}
	if a.shutdownTelemetry != nil {
		return a.shutdownTelemetry(ctx)
	}
	return nil
}

// Pipeline exposes the ingestion orchestrator for callers (e.g. the MCP
// server) that need the full Ingest surface directly.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Beliefs exposes the underlying belief store.
func (a *App) Beliefs() ports.BeliefStore { return a.beliefs }

// Relationships exposes the underlying relationship store.
func (a *App) Relationships() ports.RelationshipStore { return a.relationships }

// Graph exposes the belief graph query surface.
func (a *App) Graph() ports.GraphQuery { return a.graph }

// Ingest extracts and persists beliefs from content on behalf of agent.
func (a *App) Ingest(ctx context.Context, content string, agent domain.AgentID) (pipeline.IngestResult, error) {
	return a.pipeline.Ingest(ctx, content, agent)
}

// GetBelief fetches a single belief by ID, or nil if it doesn't exist.
func (a *App) GetBelief(ctx context.Context, id domain.BeliefID) (*domain.Belief, error) {
	return a.beliefs.Get(ctx, id)
}

// Reachable finds beliefs reachable from start within maxDepth relationship
// hops, following dir-constrained edges.
func (a *App) Reachable(ctx context.Context, start domain.BeliefID, agent domain.AgentID, maxDepth int, dir ports.Direction) ([]domain.BeliefID, error) {
	return a.graph.Reachable(ctx, start, agent, maxDepth, dir, nil)
}
