package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkfs/inkfs/internal/logger"
	"github.com/inkfs/inkfs/server/internal/config"
	"github.com/inkfs/inkfs/server/internal/metastore/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending metadata store schema migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
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

	if cfg.Store.Driver == "memory" {
		return fmt.Errorf("migrate: store driver is %q, nothing to migrate", cfg.Store.Driver)
	}

	if err := postgres.Migrate(cmd.Context(), cfg.Store.PostgresDSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	fmt.Println("migrations applied successfully")
	return nil
}
