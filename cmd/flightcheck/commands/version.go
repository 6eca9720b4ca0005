package commands

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JNZader/flightcheck/internal/rules"
)

// Version information, set at build time with -ldflags "-X ..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and builtin catalog information",
	Long: `Print the flightcheck version together with the domains compiled
into the binary.

Examples:
  flightcheck version
  flightcheck version --short
  flightcheck version --json`,

	Args: usageArgs(cobra.NoArgs),
	RunE: runVersion,
}

var (
	versionShort bool
	versionJSON  bool
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "print only the version number")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output as JSON")
}

// VersionInfo describes the running binary and its embedded catalogs.
type VersionInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuildDate string   `json:"build_date"`
	GoVersion string   `json:"go_version"`
	Platform  string   `json:"platform"`
	Domains   []string `json:"builtin_domains"`
	Rules     int      `json:"builtin_rules"`
}

// GetVersionInfo returns the version info of the running binary. The
// builtin catalogs are compiled to count their rules, so a broken embedded
// catalog is reported here too.
func GetVersionInfo() (VersionInfo, error) {
	info := VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Domains:   []string{},
	}

	docs, err := rules.BuiltinDocuments()
	if err != nil {
		return info, err
	}
	for _, doc := range docs {
		spec, err := rules.ParseDomain(doc.Data, doc.Source)
		if err != nil {
			return info, err
		}
		set, err := spec.Build()
		if err != nil {
			return info, err
		}
		info.Domains = append(info.Domains, set.Name())
		info.Rules += len(set.Rules())
	}
	return info, nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if versionShort {
		fmt.Fprintln(out, Version)
		return nil
	}

	info, err := GetVersionInfo()
	if err != nil {
		return fmt.Errorf("reading builtin catalogs: %w", err)
	}

	if versionJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version info: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "flightcheck %s (%s, built %s)\n", info.Version, info.Commit, info.BuildDate)
	fmt.Fprintf(out, "  %s on %s\n", info.GoVersion, info.Platform)
	fmt.Fprintf(out, "  builtin domains: %d (%s)\n", len(info.Domains), strings.Join(info.Domains, ", "))
	fmt.Fprintf(out, "  builtin rules:   %d\n", info.Rules)
	return nil
}
