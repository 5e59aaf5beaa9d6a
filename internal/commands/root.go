package commands

import (
	"errors"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/logging"
)

// ReportedError marks an error that has already been logged.
type ReportedError struct {
	error
}

func (e ReportedError) Unwrap() error {
	return e.error
}

// IsReported reports whether err was already logged by a command.
func IsReported(err error) bool {
	var reported ReportedError
	return errors.As(err, &reported)
}

// NewRootCommand builds the clover command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "clover",
		Short:         "Electricity plan pricing ETL",
		Long:          "clover resolves member ZIP codes to utilities, fetches their current retail plans and upserts them into PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newMigrateCommand())

	return root
}

// loadConfig reads and validates configuration and builds the logger.
func loadConfig(apply func(*config.Config)) (*config.Config, ectologger.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger, flush, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, flush, nil
}
