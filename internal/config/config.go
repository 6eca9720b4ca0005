// Package config handles all configuration management for flightcheck.
//
// Configuration is loaded from multiple sources in order of precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables (FLIGHTCHECK_*)
// 3. Configuration file (.flightcheck.yaml)
// 4. Default values (lowest priority)
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the main configuration structure for flightcheck.
type Config struct {
	// Catalog selects where domain rule catalogs come from
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog" json:"catalog"`

	// Run configures file resolution and the runner
	Run RunConfig `mapstructure:"run" yaml:"run" json:"run"`

	// Report configures output formatting
	Report ReportConfig `mapstructure:"report" yaml:"report" json:"report"`

	// Cache configures the persistent findings cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache" json:"cache"`

	// History configures the run history store
	History HistoryConfig `mapstructure:"history" yaml:"history" json:"history"`

	// Log configures diagnostics on stderr
	Log LogConfig `mapstructure:"log" yaml:"log" json:"log"`

	// Rules narrows the rules of the selected domain
	Rules RulesConfig `mapstructure:"rules" yaml:"rules" json:"rules"`
}

// CatalogConfig lists catalog sources. Later sources replace earlier
// domains of the same name.
type CatalogConfig struct {
	// Builtin loads the domains embedded in the binary
	Builtin bool `mapstructure:"builtin" yaml:"builtin" json:"builtin"`

	// Dirs are searched recursively for *.flight.yaml files
	Dirs []string `mapstructure:"dirs" yaml:"dirs" json:"dirs"`

	// Files are single catalog files
	Files []string `mapstructure:"files" yaml:"files" json:"files"`

	// URLs are fetched over https
	URLs []string `mapstructure:"urls" yaml:"urls" json:"urls"`
}

// RunConfig configures a validation run.
type RunConfig struct {
	// Workers bounds concurrent reads and matches (0 = GOMAXPROCS)
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`

	// MaxFileBytes is the size cap per scanned file
	MaxFileBytes int64 `mapstructure:"max_file_bytes" yaml:"max_file_bytes" json:"max_file_bytes"`

	// Root is the directory default patterns are expanded in
	Root string `mapstructure:"root" yaml:"root" json:"root"`

	// Exclude adds glob patterns to every domain's excludes
	Exclude []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`

	// Timeout bounds a whole run (0 = none)
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// ReportConfig configures output formatting.
type ReportConfig struct {
	// Format is the output format: "text", "json", "sarif", "markdown"
	Format string `mapstructure:"format" yaml:"format" json:"format"`

	// Color is "auto", "always" or "never"
	Color string `mapstructure:"color" yaml:"color" json:"color"`

	// FailDetail is how many findings are listed per failed rule
	FailDetail int `mapstructure:"fail_detail" yaml:"fail_detail" json:"fail_detail"`

	// WarnDetail is how many findings are listed per warning rule
	WarnDetail int `mapstructure:"warn_detail" yaml:"warn_detail" json:"warn_detail"`

	// Output is the output file path (empty = stdout)
	Output string `mapstructure:"output" yaml:"output" json:"output"`
}

// CacheConfig configures caching behavior.
type CacheConfig struct {
	// Enabled enables the persistent cache
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Dir is the cache directory
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`

	// TTL is the cache entry time-to-live
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	// MaxEntries is the maximum number of entries of the in-memory cache
	// used by watch mode
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries" json:"max_entries"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	// Enabled records every validate run
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Path is the SQLite database file
	Path string `mapstructure:"path" yaml:"path" json:"path"`

	// MaxRuns prunes older runs after recording (0 = keep all)
	MaxRuns int `mapstructure:"max_runs" yaml:"max_runs" json:"max_runs"`
}

// LogConfig configures diagnostics.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error"
	Level string `mapstructure:"level" yaml:"level" json:"level"`

	// Format is "text" or "json"
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// RulesConfig configures the rule selection.
type RulesConfig struct {
	// Enabled is the list of enabled rule IDs (empty = all)
	Enabled []string `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Disabled is the list of disabled rule IDs
	Disabled []string `mapstructure:"disabled" yaml:"disabled" json:"disabled"`
}

var (
	validFormats   = []string{"text", "json", "sarif", "markdown", "md"}
	validColors    = []string{"auto", "always", "never"}
	validLevels    = []string{"debug", "info", "warn", "error"}
	validLogFormat = []string{"text", "json"}
)

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if !c.Catalog.Builtin && len(c.Catalog.Dirs) == 0 && len(c.Catalog.Files) == 0 && len(c.Catalog.URLs) == 0 {
		return &ValidationError{Field: "catalog", Message: "no catalog source configured"}
	}
	for _, u := range c.Catalog.URLs {
		if !strings.HasPrefix(u, "https://") {
			return &ValidationError{Field: "catalog.urls", Message: fmt.Sprintf("only https URLs are allowed: %s", u)}
		}
	}

	if c.Run.Workers < 0 {
		return &ValidationError{Field: "run.workers", Message: "must not be negative"}
	}
	if c.Run.MaxFileBytes < 0 {
		return &ValidationError{Field: "run.max_file_bytes", Message: "must not be negative"}
	}
	if c.Run.Timeout < 0 {
		return &ValidationError{Field: "run.timeout", Message: "must not be negative"}
	}

	if !oneOf(c.Report.Format, validFormats) {
		return &ValidationError{Field: "report.format", Message: "invalid format, must be one of: text, json, sarif, markdown"}
	}
	if !oneOf(c.Report.Color, validColors) {
		return &ValidationError{Field: "report.color", Message: "invalid color mode, must be one of: auto, always, never"}
	}
	if c.Report.FailDetail < 0 || c.Report.WarnDetail < 0 {
		return &ValidationError{Field: "report.fail_detail", Message: "detail limits must not be negative"}
	}

	if c.Cache.Enabled && c.Cache.Dir == "" {
		return &ValidationError{Field: "cache.dir", Message: "cache directory is required when cache is enabled"}
	}
	if c.History.Enabled && c.History.Path == "" {
		return &ValidationError{Field: "history.path", Message: "history path is required when history is enabled"}
	}
	if c.History.MaxRuns < 0 {
		return &ValidationError{Field: "history.max_runs", Message: "must not be negative"}
	}

	if !oneOf(c.Log.Level, validLevels) {
		return &ValidationError{Field: "log.level", Message: "invalid level, must be one of: debug, info, warn, error"}
	}
	if !oneOf(c.Log.Format, validLogFormat) {
		return &ValidationError{Field: "log.format", Message: "invalid format, must be one of: text, json"}
	}

	return nil
}

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Field + ": " + e.Message
}
