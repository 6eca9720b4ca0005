package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JNZader/flightcheck/internal/config"
	"github.com/JNZader/flightcheck/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and manage flightcheck configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration, including values from
config file, environment variables, flags and defaults.

Examples:
  # Show config in YAML format
  flightcheck config show

  # Show config as JSON
  flightcheck config show --json`,

	Args: usageArgs(cobra.NoArgs),
	RunE: runConfigShow,
}

var configShowJSON bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output as JSON")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	masked := maskSensitiveConfig(cfg)

	if !quiet && !configShowJSON {
		if used := cfgLoader.ConfigFileUsed(); used != "" {
			fmt.Fprintf(out, "# Config file: %s\n\n", used)
		} else {
			fmt.Fprint(out, "# No config file found, using defaults\n\n")
		}
	}

	if configShowJSON {
		return outputConfigJSON(out, masked)
	}
	return outputConfigYAML(out, masked)
}

// maskSensitiveConfig returns a copy with credentials in catalog URLs
// masked.
func maskSensitiveConfig(c *config.Config) *config.Config {
	masked := *c
	masked.Catalog.URLs = make([]string, len(c.Catalog.URLs))
	for i, u := range c.Catalog.URLs {
		masked.Catalog.URLs[i] = logger.MaskSecrets(u)
	}
	return &masked
}

func outputConfigJSON(w io.Writer, c *config.Config) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputConfigYAML(w io.Writer, c *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}
