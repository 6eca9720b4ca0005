package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const configFileName = ".flightcheck.yaml"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	// Set config name and type
	v.SetConfigName(".flightcheck")
	v.SetConfigType("yaml")

	// Add search paths in order of priority
	v.AddConfigPath(".")                // Current directory (highest priority)
	v.AddConfigPath("$HOME")            // Home directory
	v.AddConfigPath("/etc/flightcheck") // System config (lowest priority)

	// Environment variable support
	v.SetEnvPrefix("FLIGHTCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// SetConfigFile sets a specific config file to use.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
	l.v.SetConfigFile(path)
}

// Load loads the configuration from all sources.
// Priority (highest to lowest):
// 1. Flags bound via Viper().BindPFlag
// 2. Environment variables (FLIGHTCHECK_*)
// 3. Config file (explicit, or .flightcheck.yaml from the search paths)
// 4. Default values
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.setDefaults(cfg)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every key so that environment variables bind.
func (l *Loader) setDefaults(cfg *Config) {
	l.v.SetDefault("catalog.builtin", cfg.Catalog.Builtin)
	l.v.SetDefault("catalog.dirs", cfg.Catalog.Dirs)
	l.v.SetDefault("catalog.files", cfg.Catalog.Files)
	l.v.SetDefault("catalog.urls", cfg.Catalog.URLs)

	l.v.SetDefault("run.workers", cfg.Run.Workers)
	l.v.SetDefault("run.max_file_bytes", cfg.Run.MaxFileBytes)
	l.v.SetDefault("run.root", cfg.Run.Root)
	l.v.SetDefault("run.exclude", cfg.Run.Exclude)
	l.v.SetDefault("run.timeout", cfg.Run.Timeout)

	l.v.SetDefault("report.format", cfg.Report.Format)
	l.v.SetDefault("report.color", cfg.Report.Color)
	l.v.SetDefault("report.fail_detail", cfg.Report.FailDetail)
	l.v.SetDefault("report.warn_detail", cfg.Report.WarnDetail)
	l.v.SetDefault("report.output", cfg.Report.Output)

	l.v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	l.v.SetDefault("cache.dir", cfg.Cache.Dir)
	l.v.SetDefault("cache.ttl", cfg.Cache.TTL)
	l.v.SetDefault("cache.max_entries", cfg.Cache.MaxEntries)

	l.v.SetDefault("history.enabled", cfg.History.Enabled)
	l.v.SetDefault("history.path", cfg.History.Path)
	l.v.SetDefault("history.max_runs", cfg.History.MaxRuns)

	l.v.SetDefault("log.level", cfg.Log.Level)
	l.v.SetDefault("log.format", cfg.Log.Format)

	l.v.SetDefault("rules.enabled", cfg.Rules.Enabled)
	l.v.SetDefault("rules.disabled", cfg.Rules.Disabled)
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance, used to bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	return NewLoader().Load()
}

// FindConfigFile searches for a config file and returns its path.
// Returns empty string if no config file is found.
func FindConfigFile() string {
	if _, err := os.Stat(configFileName); err == nil {
		if abs, err := filepath.Abs(configFileName); err == nil {
			return abs
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	etcPath := filepath.Join("/etc/flightcheck", configFileName)
	if _, err := os.Stat(etcPath); err == nil {
		return etcPath
	}

	return ""
}
