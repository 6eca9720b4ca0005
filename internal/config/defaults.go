package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultMaxFileBytes mirrors the runner's default size cap.
const DefaultMaxFileBytes int64 = 4 << 20

// DefaultConfig returns a Config with sensible default values.
// These defaults run the embedded domains with no extra setup.
func DefaultConfig() *Config {
	dataDir := defaultDataDir()

	return &Config{
		Catalog: CatalogConfig{Builtin: true},
		Run: RunConfig{
			MaxFileBytes: DefaultMaxFileBytes,
			Root:         ".",
			Exclude:      DefaultExcludePatterns(),
		},
		Report: ReportConfig{
			Format:     "text",
			Color:      "auto",
			FailDetail: 10,
			WarnDetail: 5,
		},
		Cache: CacheConfig{
			Dir:        filepath.Join(dataDir, "findings"),
			TTL:        7 * 24 * time.Hour,
			MaxEntries: 10000,
		},
		History: HistoryConfig{
			Path:    filepath.Join(dataDir, "history.db"),
			MaxRuns: 1000,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// defaultDataDir returns the default directory for the cache and history.
func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".cache", "flightcheck")
}

// DefaultExcludePatterns returns directories never worth scanning.
func DefaultExcludePatterns() []string {
	return []string{
		"**/.git/**",
		"**/node_modules/**",
		"**/dist/**",
		"**/build/**",
		"**/vendor/**",
		"**/target/**",
		"**/__pycache__/**",
		"**/.venv/**",
	}
}
