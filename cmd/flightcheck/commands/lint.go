package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JNZader/flightcheck/internal/rules"
)

var lintCmd = &cobra.Command{
	Use:   "lint [file-or-dir ...]",
	Short: "Check domain catalogs for mistakes",
	Long: `Check catalog files for structural errors and stale provenance.

Errors are missing or duplicate ids, invalid severities, mechanical rules
without a check, unknown check types, invalid patterns and examples the
check gets wrong. Warnings are missing or low-confidence provenance and
overdue audits. Without arguments the configured catalog sources are
checked.

The exit code is the number of catalogs with errors; --strict counts
catalogs with warnings as well.

Examples:
  # Check the embedded domains
  flightcheck lint

  # Check a directory of team catalogs
  flightcheck lint ./catalogs

  # Fail on warnings too
  flightcheck lint --strict team.flight.yaml`,

	RunE: runLint,
}

var lintStrict bool

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVar(&lintStrict, "strict", false, "treat warnings as errors")
}

func runLint(cmd *cobra.Command, args []string) error {
	sources := catalogSources()
	if len(args) > 0 {
		sources = rules.Sources{}
		for _, arg := range args {
			info, err := os.Stat(arg)
			if err != nil {
				return &usageError{err: err}
			}
			if info.IsDir() {
				sources.Dirs = append(sources.Dirs, arg)
			} else {
				sources.Files = append(sources.Files, arg)
			}
		}
	}

	docs, err := rules.NewLoader(sources, componentLog("lint")).Documents(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	now := time.Now()
	failed := 0
	for _, doc := range docs {
		report := rules.Lint(doc.Data, doc.Source, now)
		name := doc.Source
		if report.Domain != "" {
			name = fmt.Sprintf("%s (%s)", doc.Source, report.Domain)
		}

		bad := !report.OK() || (lintStrict && len(report.Warnings()) > 0)
		if bad {
			failed++
		}
		if len(report.Issues) == 0 {
			fmt.Fprintf(out, "✅ %s\n", name)
			continue
		}
		icon := "⚠️ "
		if bad {
			icon = "❌"
		}
		fmt.Fprintf(out, "%s %s\n", icon, name)
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "   %s\n", issue)
		}
	}
	fmt.Fprintf(out, "\n%d catalog(s) checked, %d with problems\n", len(docs), failed)

	return failureExit(failed)
}
