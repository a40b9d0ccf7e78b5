package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/inkfs/inkfs/internal/logger"
	"github.com/inkfs/inkfs/server/internal/api"
	"github.com/inkfs/inkfs/server/internal/config"
	"github.com/inkfs/inkfs/server/internal/contentstore"
	"github.com/inkfs/inkfs/server/internal/metastore"
	"github.com/inkfs/inkfs/server/internal/metastore/memstore"
	"github.com/inkfs/inkfs/server/internal/metastore/postgres"
	"github.com/inkfs/inkfs/server/internal/nodelock"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inkfs HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	content, err := contentstore.New(cfg.Content.BaseDir)
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}

	locker := nodelock.New()

	server := api.NewServer(cfg.HTTP.Addr, store, content, locker)
	return server.Start(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (metastore.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Info("using in-memory metadata store", "note", "not for production use")
		return memstore.New(), nil
	case "postgres", "":
		if cfg.Store.AutoMigrate {
			if err := postgres.Migrate(ctx, cfg.Store.PostgresDSN); err != nil {
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
		}
		return postgres.Open(ctx, cfg.Store.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
