package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Catalog.Builtin)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.Equal(t, "auto", cfg.Report.Color)
	assert.Equal(t, 10, cfg.Report.FailDetail)
	assert.Equal(t, 5, cfg.Report.WarnDetail)
	assert.Equal(t, DefaultMaxFileBytes, cfg.Run.MaxFileBytes)
	assert.Equal(t, ".", cfg.Run.Root)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "history.db", filepath.Base(cfg.History.Path))
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"no catalog source", func(c *Config) { c.Catalog.Builtin = false }, "catalog"},
		{"files only", func(c *Config) {
			c.Catalog.Builtin = false
			c.Catalog.Files = []string{"x.flight.yaml"}
		}, ""},
		{"plain http url", func(c *Config) { c.Catalog.URLs = []string{"http://example.com/x"} }, "catalog.urls"},
		{"negative workers", func(c *Config) { c.Run.Workers = -1 }, "run.workers"},
		{"negative size cap", func(c *Config) { c.Run.MaxFileBytes = -1 }, "run.max_file_bytes"},
		{"negative timeout", func(c *Config) { c.Run.Timeout = -time.Second }, "run.timeout"},
		{"invalid format", func(c *Config) { c.Report.Format = "xml" }, "report.format"},
		{"format is case-insensitive", func(c *Config) { c.Report.Format = "SARIF" }, ""},
		{"invalid color", func(c *Config) { c.Report.Color = "sometimes" }, "report.color"},
		{"negative detail", func(c *Config) { c.Report.WarnDetail = -1 }, "report.fail_detail"},
		{"cache enabled without dir", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Dir = ""
		}, "cache.dir"},
		{"history enabled without path", func(c *Config) {
			c.History.Enabled = true
			c.History.Path = ""
		}, "history.path"},
		{"negative max runs", func(c *Config) { c.History.MaxRuns = -3 }, "history.max_runs"},
		{"invalid log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantErr, ve.Field)
		})
	}
}

func TestLoaderDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Report.Format)
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("FLIGHTCHECK_REPORT_FORMAT", "json")
	t.Setenv("FLIGHTCHECK_RUN_WORKERS", "3")
	t.Setenv("FLIGHTCHECK_HISTORY_ENABLED", "true")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, 3, cfg.Run.Workers)
	assert.True(t, cfg.History.Enabled)
}

func TestLoaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  builtin: false
  dirs: [./catalogs]
run:
  timeout: 30s
  workers: 2
report:
  format: sarif
  fail_detail: 3
rules:
  disabled: [S1, G2]
`), 0o600))

	loader := NewLoader()
	loader.SetConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, path, loader.ConfigFileUsed())
	assert.False(t, cfg.Catalog.Builtin)
	assert.Equal(t, []string{"./catalogs"}, cfg.Catalog.Dirs)
	assert.Equal(t, 30*time.Second, cfg.Run.Timeout)
	assert.Equal(t, 2, cfg.Run.Workers)
	assert.Equal(t, "sarif", cfg.Report.Format)
	assert.Equal(t, 3, cfg.Report.FailDetail)
	assert.Equal(t, 5, cfg.Report.WarnDetail, "unset keys keep defaults")
	assert.Equal(t, []string{"S1", "G2"}, cfg.Rules.Disabled)
}

func TestLoaderFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("report: [oops"), 0o600))
	_, err := LoadFromFile(broken)
	assert.ErrorContains(t, err, "error reading config file")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("report:\n  color: rainbow\n"), 0o600))
	_, err = LoadFromFile(invalid)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "report.color", ve.Field)
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "test.field", Message: "test message"}
	assert.Equal(t, "config validation error: test.field: test message", err.Error())
}

func TestDefaultExcludePatterns(t *testing.T) {
	assert.Contains(t, DefaultExcludePatterns(), "**/.git/**")
	assert.Contains(t, DefaultExcludePatterns(), "**/node_modules/**")
	assert.Contains(t, DefaultExcludePatterns(), "**/dist/**")
	assert.Contains(t, DefaultExcludePatterns(), "**/build/**")
	assert.Equal(t, DefaultExcludePatterns(), DefaultConfig().Run.Exclude)
}
