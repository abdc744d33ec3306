// Package relstore implements the relational storage strategy (C4) over
// PostgreSQL via pgx/pgxpool: BeliefStore, ConflictStore, and
// RelationshipStore backed by the belief/relationship/conflict tables in
// migrations/001_initial.sql.
package relstore

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/savantly-net/headkey/internal/telemetry"
)

// tracer spans individual backend calls (belief/relationship writes), the
// same per-package otel.Tracer idiom the teacher uses in internal/server.
var tracer = telemetry.Tracer("headkey/relstore")

// DB wraps a pgxpool.Pool, registering pgvector types on every new
// connection so the belief.content_embedding column round-trips correctly,
// mirroring the teacher's AfterConnect hook in internal/storage/pool.go.
type DB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a connection pool against dsn.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("relstore: parse dsn: %w", err)
	}

	// Register pgvector types on each new connection so the belief table's
	// content_embedding column encodes/decodes correctly. Best-effort: before
	// migrations run, the vector extension may not exist yet.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if err := pgxvector.RegisterTypes(ctx, conn); err != nil {
			logger.Debug("relstore: pgvector types not registered (extension may not exist yet)", "error", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("relstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("relstore: ping pool: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// Pool exposes the underlying pool for advanced callers (migrations, tests).
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close releases the pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// RunMigrations executes every .sql file in migrationsFS in name order, the
// same forward-only runner the teacher uses in internal/storage/migrate.go.
func (db *DB) RunMigrations(ctx context.Context, migrationsFS fs.FS) error {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("relstore: read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(migrationsFS, entry.Name())
		if err != nil {
			return fmt.Errorf("relstore: read migration %s: %w", entry.Name(), err)
		}
		db.logger.Info("relstore: running migration", "file", entry.Name())
		if _, err := db.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("relstore: execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}
