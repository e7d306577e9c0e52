package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penguindash/internal/blob"
	"penguindash/internal/dataset"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, LogLevelInfo, cfg.Log.Level)
	assert.Equal(t, LogFormatConsole, cfg.Log.Format)
	assert.Equal(t, dataset.DriverEmbedded, cfg.Dataset.Driver)
	assert.Equal(t, "penguins", cfg.Dataset.Table)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, blob.DriverFilesystem, cfg.Blob.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Dashboard.SessionTTL)
	assert.Equal(t, "Penguins dashboard", cfg.Dashboard.Title)
	assert.Equal(t, 20, cfg.Chart.Bins)
	assert.Equal(t, 50.0, cfg.TUI.Step)
	assert.Equal(t, 32, cfg.Exports.QueueSize)
	assert.Equal(t, time.Hour, cfg.Exports.Retention)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Log.Level = "trace" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"dataset driver", func(c *Config) { c.Dataset.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Dataset.Driver = dataset.DriverPostgres }},
		{"csv without path", func(c *Config) { c.Dataset.Driver = dataset.DriverCSV }},
		{"blob driver", func(c *Config) { c.Blob.Driver = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Blob.Driver = blob.DriverS3 }},
		{"bins", func(c *Config) { c.Chart.Bins = 0 }},
		{"chart size", func(c *Config) { c.Chart.Width = -1 }},
		{"tui step", func(c *Config) { c.TUI.Step = 0 }},
		{"queue size", func(c *Config) { c.Exports.QueueSize = 0 }},
		{"session ttl", func(c *Config) { c.Dashboard.SessionTTL = -time.Second }},
		{"export retention", func(c *Config) { c.Exports.Retention = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penguindash.yaml")
	content := []byte(`log:
  level: debug
  format: json
dataset:
  driver: sqlite
  path: /tmp/penguins.db
dashboard:
  session_ttl: 5m
chart:
  bins: 12
blob:
  driver: s3
  s3:
    bucket: exports
    region: eu-west-1
    path_style: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, LogLevelDebug, cfg.Log.Level)
	assert.Equal(t, LogFormatJSON, cfg.Log.Format)
	assert.Equal(t, dataset.DriverSQLite, cfg.Dataset.Driver)
	assert.Equal(t, "/tmp/penguins.db", cfg.Dataset.Path)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.SessionTTL)
	assert.Equal(t, 12, cfg.Chart.Bins)
	assert.Equal(t, blob.DriverS3, cfg.Blob.Driver)
	assert.Equal(t, "exports", cfg.Blob.S3.Bucket)
	assert.True(t, cfg.Blob.S3.PathStyle)
	assert.Equal(t, "Penguins dashboard", cfg.Dashboard.Title)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penguindash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	t.Setenv("PENGUINDASH_LOG_LEVEL", "warn")
	t.Setenv("PENGUINDASH_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("PENGUINDASH_DASHBOARD_SESSION_TTL", "90s")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, 90*time.Second, cfg.Dashboard.SessionTTL)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PENGUINDASH_LOG_LEVEL", "warn")

	root := &cobra.Command{Use: "root"}
	root.PersistentFlags().String("log-level", "", "")
	root.PersistentFlags().String("unrelated", "", "")
	child := &cobra.Command{Use: "serve"}
	child.Flags().String("addr", ":8080", "")
	root.AddCommand(child)

	require.NoError(t, root.PersistentFlags().Set("log-level", "error"))
	require.NoError(t, child.Flags().Set("addr", ":7070"))

	cfg, err := Load(child, "")
	require.NoError(t, err)
	assert.Equal(t, LogLevelError, cfg.Log.Level)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
}

func TestLoadUnsetFlagKeepsDefault(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().String("addr", "", "")

	cfg, err := Load(cmd, "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PENGUINDASH_DATASET_DRIVER", "mysql")
	_, err := Load(nil, "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestContextRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.HTTP.Addr = ":1"
	ctx := NewContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Equal(t, ":8080", FromContext(context.Background()).HTTP.Addr)
}
