package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"penguindash/internal/config"
	"penguindash/internal/dataset"
	"penguindash/internal/infra/source/postgres"
	"penguindash/internal/infra/source/sqlite"
	"penguindash/internal/logging"
	"penguindash/pkg/domain"
)

type seeder interface {
	Seed(ctx context.Context, records []domain.Record) error
	Close() error
}

func newSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the bundled dataset into a sqlite file or PostgreSQL table",
		Long: `Replace the contents of the dataset table with the bundled Palmer
penguins data so the sqlite and postgres drivers have something to read.`,
		Example: `  penguindash seed --driver sqlite --data penguins.db
  penguindash seed --driver postgres --dsn postgres://localhost/penguins`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			logger := logging.FromContext(ctx)

			records, err := dataset.EmbeddedRecords()
			if err != nil {
				return fmt.Errorf("read bundled dataset: %w", err)
			}

			// The embedded and csv drivers are read-only sources; seeding
			// them means writing the sqlite default.
			dest := cfg.Dataset
			if dest.Driver == dataset.DriverEmbedded || dest.Driver == dataset.DriverCSV {
				dest.Driver = dataset.DriverSQLite
				dest.Path = ""
			}

			target, err := openSeedTarget(ctx, dest)
			if err != nil {
				return err
			}
			defer target.Close()

			if err := target.Seed(ctx, records); err != nil {
				return fmt.Errorf("seed %s: %w", dest.Driver, err)
			}
			logger.Info("dataset seeded",
				zap.String("driver", string(dest.Driver)),
				zap.String("table", dest.Table),
				zap.Int("records", len(records)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records into %s\n", len(records), dest.Driver)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("driver", string(dataset.DriverSQLite), "target driver: sqlite, postgres")
	f.String("data", "", "sqlite file to write (default: penguins.db)")
	f.String("dsn", "", "PostgreSQL connection string")
	f.String("table", "penguins", "table to replace")
	return cmd
}

func openSeedTarget(ctx context.Context, cfg dataset.Config) (seeder, error) {
	switch cfg.Driver {
	case dataset.DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = dataset.DefaultSQLitePath
		}
		store, err := sqlite.Open(path, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", path, err)
		}
		return store, nil
	case dataset.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	default:
		return nil, &ExitError{Code: ExitConfig, Err: fmt.Errorf("seed driver %q must be sqlite or postgres", cfg.Driver)}
	}
}
