// Package postgres is the pgx-backed implementation of metastore.Store,
// using raw SQL against the schema spec §3 defines: directories, files,
// directory_entries, and a single-row node_id_counter.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkfs/inkfs/internal/logger"
)

// Store implements metastore.Store against a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates a connection pool against dsn and returns a Store. It does
// not run migrations; callers run `inkfsd migrate` (or pass AutoMigrate at
// the config layer) before serving traffic.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("metastore/postgres: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("metastore/postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("metastore/postgres: ping: %w", err)
	}

	logger.Info("metastore connected", "driver", "pgx")
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ResetForTest wipes every row and recreates the ROOT directory, used
// between storetest subtests that share one long-lived container instead of
// starting a fresh one per case.
func (s *Store) ResetForTest(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		TRUNCATE directory_entries, directories, files RESTART IDENTITY;
		INSERT INTO directories (id, parent) VALUES (1, 1);
		UPDATE node_id_counter SET current_id = 1;
	`)
	return err
}
