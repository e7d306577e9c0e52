// Package cli implements the penguindash command tree.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"penguindash/internal/config"
	"penguindash/internal/dataset"
	"penguindash/internal/logging"
)

// Exit codes.
const (
	ExitFailure     = 1
	ExitConfig      = 2
	ExitUnavailable = 3
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, dataset.ErrDataUnavailable) {
		return ExitUnavailable
	}
	return ExitFailure
}

// NewRootCommand constructs the top-level command with all subcommands.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "penguindash",
		Short: "Interactive Palmer penguins dashboard",
		Long: `penguindash filters the Palmer penguins measurements by a body mass
ceiling and a species selection and renders the count, mean bill length and
depth, a body mass histogram and the data table for the filtered rows.

Serve it over HTTP, run it in the terminal or print a single snapshot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: ExitConfig, Err: err}
			}

			logger, _, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return &ExitError{Code: ExitConfig, Err: err}
			}

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				zap.String("file", cfg.ConfigFile),
				zap.String("log_level", cfg.Log.Level),
				zap.String("dataset_driver", string(cfg.Dataset.Driver)),
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = logging.FromContext(cmd.Context()).Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .penguindash.yaml)")
	pf.String("log-level", config.LogLevelInfo, "log level: debug, info, warn, error")
	pf.String("log-format", config.LogFormatConsole, "log format: console, json")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitConfig, Err: err}
	})

	cmd.AddCommand(
		newServeCommand(),
		newTUICommand(),
		newSnapshotCommand(),
		newSeedCommand(),
		newVersionCommand(),
	)
	return cmd
}

// addDatasetFlags registers the flags that override the dataset section.
func addDatasetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("driver", string(dataset.DriverEmbedded), "dataset driver: embedded, csv, sqlite, postgres")
	f.String("data", "", "dataset file for the csv and sqlite drivers")
	f.String("dsn", "", "PostgreSQL connection string")
	f.String("table", "penguins", "dataset table for the sqlite and postgres drivers")
}
