// Package config loads penguindash settings.
//
// Sources, highest precedence first:
//  1. CLI flags
//  2. Environment variables (PENGUINDASH_ prefix, "." and "-" become "_")
//  3. Config file (.penguindash.yaml)
//  4. Defaults
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"penguindash/internal/blob"
	"penguindash/internal/dataset"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// ErrInvalid marks a configuration value that failed validation.
var ErrInvalid = errors.New("invalid configuration")

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DashboardConfig struct {
	Title         string        `mapstructure:"title"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ChartConfig sizes the body mass histogram and its PNG rendering.
type ChartConfig struct {
	Bins   int `mapstructure:"bins"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type TUIConfig struct {
	Step float64 `mapstructure:"step"`
}

type ExportsConfig struct {
	QueueSize int           `mapstructure:"queue_size"`
	Retention time.Duration `mapstructure:"retention"`
}

// Config is the full application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Dataset   dataset.Config  `mapstructure:"dataset"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Blob      blob.Config     `mapstructure:"blob"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Chart     ChartConfig     `mapstructure:"chart"`
	TUI       TUIConfig       `mapstructure:"tui"`
	Exports   ExportsConfig   `mapstructure:"exports"`

	// ConfigFile is the file Load read, if any.
	ConfigFile string `mapstructure:"-"`
}

var defaults = map[string]any{
	"log.level":                 LogLevelInfo,
	"log.format":                LogFormatConsole,
	"dataset.driver":            string(dataset.DriverEmbedded),
	"dataset.path":              "",
	"dataset.dsn":               "",
	"dataset.table":             "penguins",
	"http.addr":                 ":8080",
	"http.read_timeout":         "10s",
	"http.write_timeout":        "30s",
	"http.shutdown_timeout":     "10s",
	"blob.driver":               string(blob.DriverFilesystem),
	"blob.fs_root":              "./artifacts",
	"blob.s3.bucket":            "",
	"blob.s3.region":            "",
	"blob.s3.endpoint":          "",
	"blob.s3.access_key_id":     "",
	"blob.s3.secret_access_key": "",
	"blob.s3.session_token":     "",
	"blob.s3.path_style":        false,
	"dashboard.title":           "Penguins dashboard",
	"dashboard.session_ttl":     "30m",
	"dashboard.sweep_interval":  "1m",
	"chart.bins":                20,
	"chart.width":               400,
	"chart.height":              200,
	"tui.step":                  50.0,
	"exports.queue_size":        32,
	"exports.retention":          "1h",
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"log-format":  "log.format",
	"driver":      "dataset.driver",
	"data":        "dataset.path",
	"dsn":         "dataset.dsn",
	"table":       "dataset.table",
	"addr":        "http.addr",
	"blob-driver": "blob.driver",
	"bins":        "chart.bins",
	"step":        "tui.step",
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("%w: log level %q must be one of debug, info, warn, error", ErrInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("%w: log format %q must be one of json, console", ErrInvalid, c.Log.Format)
	}
	if !c.Dataset.Driver.Valid() {
		return fmt.Errorf("%w: dataset driver %q must be one of %v", ErrInvalid, c.Dataset.Driver, dataset.Drivers())
	}
	if c.Dataset.Driver == dataset.DriverPostgres && c.Dataset.DSN == "" {
		return fmt.Errorf("%w: dataset.dsn is required for the postgres driver", ErrInvalid)
	}
	if c.Dataset.Driver == dataset.DriverCSV && c.Dataset.Path == "" {
		return fmt.Errorf("%w: dataset.path is required for the csv driver", ErrInvalid)
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory:
	default:
		return fmt.Errorf("%w: blob driver %q must be one of fs, s3, memory", ErrInvalid, c.Blob.Driver)
	}
	if c.Blob.Driver == blob.DriverS3 && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("%w: blob.s3.bucket is required for the s3 driver", ErrInvalid)
	}
	if c.Chart.Bins <= 0 {
		return fmt.Errorf("%w: chart.bins must be positive, got %d", ErrInvalid, c.Chart.Bins)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("%w: chart size %dx%d must be positive", ErrInvalid, c.Chart.Width, c.Chart.Height)
	}
	if c.TUI.Step <= 0 {
		return fmt.Errorf("%w: tui.step must be positive, got %g", ErrInvalid, c.TUI.Step)
	}
	if c.Exports.QueueSize <= 0 {
		return fmt.Errorf("%w: exports.queue_size must be positive, got %d", ErrInvalid, c.Exports.QueueSize)
	}
	if c.Dashboard.SessionTTL < 0 {
		return fmt.Errorf("%w: dashboard.session_ttl must not be negative", ErrInvalid)
	}
	if c.Exports.Retention < 0 {
		return fmt.Errorf("%w: exports.retention must not be negative", ErrInvalid)
	}
	return nil
}

// Load reads configuration for cmd. A fresh viper instance is used on every
// call so Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("PENGUINDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName(".penguindash")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "penguindash"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// bindFlags binds the known flags of cmd and its parents to their keys.
// Only flags the user set override lower-precedence sources.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}
	sets := []*pflag.FlagSet{cmd.Flags()}
	for c := cmd; c != nil; c = c.Parent() {
		sets = append(sets, c.PersistentFlags())
	}
	for _, set := range sets {
		var err error
		set.VisitAll(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok || err != nil {
				return
			}
			if bindErr := v.BindPFlag(key, f); bindErr != nil {
				err = fmt.Errorf("binding flag %s: %w", f.Name, bindErr)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}
	return Default()
}
