package commands

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/database"
)

func newMigrateCommand() *cobra.Command {
	var (
		version     uint
		databaseURL string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Applies the migrations in DB_MIGRATION_FOLDER_PATH, all the way up unless a version is given.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, flush, err := loadConfig(func(cfg *config.Config) {
				if cmd.Flags().Changed("version") {
					cfg.DatabaseMigrationVersion = version
				}
				if cmd.Flags().Changed("database-url") {
					cfg.DatabaseURL = databaseURL
				}
			})
			if err != nil {
				return err
			}
			defer flush()

			ctx := cmd.Context()

			latest, err := database.LatestVersion(cfg.DatabaseMigrationFolderPath)
			if err != nil {
				logger.WithError(err).Errorf("Failed to read migrations from %s", cfg.DatabaseMigrationFolderPath)
				return ReportedError{err}
			}

			db, err := database.Connect(ctx, cfg.DSN(), database.PoolConfig{MaxOpenConns: 1}, logger)
			if err != nil {
				logger.WithError(err).Error("Failed to connect to database")
				return ReportedError{err}
			}
			defer db.Close()

			target := uint(latest)
			if cfg.DatabaseMigrationVersion != 0 {
				target = cfg.DatabaseMigrationVersion
			}
			logger.WithFields(map[string]any{
				"target": target,
				"latest": latest,
			}).Info("Applying migrations")

			if err := app.Migrate(cfg, db, logger); err != nil {
				logger.WithError(err).Error("Failed to apply migrations")
				return ReportedError{err}
			}

			logger.Info("Done.")
			return nil
		},
	}

	cmd.Flags().UintVar(&version, "version", 0, "target migration version (default: latest)")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")

	return cmd
}
