package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JNZader/flightcheck/internal/rules"
)

var exportCmd = &cobra.Command{
	Use:   "export <domain>",
	Short: "Export a domain as tool-neutral JSON",
	Long: `Export the rules of a domain as JSON for editors and other linters.

Each rule carries its id, title, severity, whether it is mechanical and,
for pattern checks, the pattern and a message.

Examples:
  # Print the bash domain
  flightcheck export bash

  # Write it to a file
  flightcheck export bash -o bash-rules.json`,

	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runExport,
}

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}
	if _, err := cat.Get(args[0]); err != nil {
		return err
	}
	spec, ok := cat.Spec(args[0])
	if !ok {
		return fmt.Errorf("domain %s has no catalog source to export", args[0])
	}

	data, err := json.MarshalIndent(rules.ExportDomain(spec), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	data = append(data, '\n')

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0o600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	log.Info("export written", "domain", args[0], "path", exportOutput)
	return nil
}
