// Package dataset loads the immutable penguin table once at process start.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"

	"penguindash/internal/infra/source/postgres"
	"penguindash/internal/infra/source/sqlite"
	"penguindash/pkg/domain"
)

// Driver identifies where the dataset is read from.
type Driver string

const (
	DriverEmbedded Driver = "embedded" // CSV compiled into the binary
	DriverCSV      Driver = "csv"      // CSV file on disk
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Drivers lists every supported driver.
func Drivers() []Driver {
	return []Driver{DriverEmbedded, DriverCSV, DriverSQLite, DriverPostgres}
}

// Valid reports whether d is a supported driver.
func (d Driver) Valid() bool {
	for _, known := range Drivers() {
		if d == known {
			return true
		}
	}
	return false
}

// DefaultSQLitePath is read when the sqlite driver has no path configured.
const DefaultSQLitePath = "penguins.db"

// Config selects and locates the dataset source.
type Config struct {
	Driver Driver `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// ErrDataUnavailable reports that the dataset could not be read or parsed.
var ErrDataUnavailable = errors.New("dataset unavailable")

// UnavailableError carries the driver and source that failed to load.
type UnavailableError struct {
	Driver Driver
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s source %q", ErrDataUnavailable, e.Driver, e.Source)
	}
	return fmt.Sprintf("%s: %s source %q: %v", ErrDataUnavailable, e.Driver, e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UnavailableError) Unwrap() error { return e.Err }

// Is matches ErrDataUnavailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

var errNoRecords = errors.New("no records")

// Load reads the dataset described by cfg. Any failure, including an empty
// source, is reported as an *UnavailableError.
func Load(ctx context.Context, cfg Config) (*domain.Dataset, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverEmbedded
	}
	src := describe(driver, cfg)
	records, err := read(ctx, driver, cfg)
	if err == nil && len(records) == 0 {
		err = errNoRecords
	}
	if err != nil {
		return nil, &UnavailableError{Driver: driver, Source: src, Err: err}
	}
	return domain.NewDataset(src, records), nil
}

func read(ctx context.Context, driver Driver, cfg Config) ([]domain.Record, error) {
	switch driver {
	case DriverEmbedded:
		return ParseCSV(embeddedReader())
	case DriverCSV:
		if cfg.Path == "" {
			return nil, errors.New("csv driver requires a path")
		}
		f, err := os.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return ParseCSV(f)
	case DriverSQLite:
		path := sqlitePath(cfg)
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		store, err := sqlite.Open(path, cfg.Table)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		return store.Load(ctx)
	case DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
		return store.Load(ctx)
	default:
		return nil, fmt.Errorf("unknown dataset driver %s", driver)
	}
}

func describe(driver Driver, cfg Config) string {
	switch driver {
	case DriverEmbedded:
		return "embedded:penguins.csv"
	case DriverCSV:
		return cfg.Path
	case DriverSQLite:
		return sqlitePath(cfg)
	case DriverPostgres:
		table := cfg.Table
		if table == "" {
			table = "penguins"
		}
		return "postgres:" + table
	default:
		return string(driver)
	}
}

func sqlitePath(cfg Config) string {
	if cfg.Path == "" {
		return DefaultSQLitePath
	}
	return cfg.Path
}
