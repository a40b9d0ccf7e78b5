package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver, required by golang-migrate

	"github.com/inkfs/inkfs/internal/logger"
	"github.com/inkfs/inkfs/server/internal/metastore/postgres/migrations"
)

// Migrate applies every pending schema migration against dsn. It opens its
// own database/sql connection (golang-migrate doesn't speak pgx's native
// interface) and closes it before returning.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("metastore/postgres: open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("metastore/postgres: ping: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    "inkfs",
	})
	if err != nil {
		return fmt.Errorf("metastore/postgres: driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("metastore/postgres: source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("metastore/postgres: migrate instance: %w", err)
	}

	logger.Info("applying schema migrations")
	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			logger.Info("schema already up to date")
			return nil
		}
		return fmt.Errorf("metastore/postgres: migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err == nil {
		logger.Info("schema migrated", "version", version, "dirty", dirty)
	}
	return nil
}
