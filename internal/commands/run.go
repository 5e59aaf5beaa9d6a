package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/membership"
	"github.com/Ramsey-B/clover/pkg/metrics"
)

type runOptions struct {
	group       string
	metrosPath  string
	databaseURL string
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one plan sync",
		Long:  "Resolves every member ZIP, fetches current plans for each utility found and loads them in a single transaction.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.group, "group", "", "plan group (overrides GROUP)")
	cmd.Flags().StringVar(&opts.metrosPath, "metros", "", "membership file path (overrides METROS_PATH)")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")

	return cmd
}

func runSync(cmd *cobra.Command, opts *runOptions) error {
	cfg, logger, flush, err := loadConfig(func(cfg *config.Config) {
		if cmd.Flags().Changed("group") {
			cfg.Group = opts.group
		}
		if cmd.Flags().Changed("metros") {
			cfg.MetrosPath = opts.metrosPath
		}
		if cmd.Flags().Changed("database-url") {
			cfg.DatabaseURL = opts.databaseURL
		}
	})
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fail := func(err error, msg string) error {
		logger.WithContext(ctx).WithError(err).Error(msg)
		return ReportedError{err}
	}

	members, err := membership.Load(cfg.MetrosPath, logger)
	if err != nil {
		return fail(err, "Failed to load membership file")
	}

	a := app.New(cfg, logger)
	if err := a.Start(ctx); err != nil {
		return fail(err, "Failed to start dependencies")
	}
	defer func() {
		if err := a.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Warn("Failed to stop dependencies cleanly")
		}
	}()

	_, runErr := a.Pipeline().Run(ctx, members)

	if cfg.MetricsPushgatewayURL != "" {
		if err := metrics.Push(cfg.MetricsPushgatewayURL, cfg.MetricsJobName, cfg.Group); err != nil {
			logger.WithError(err).Warn("Failed to push metrics")
		}
	}

	if runErr != nil {
		return fail(runErr, "Plan sync failed")
	}

	logger.Info("Done.")
	return nil
}
