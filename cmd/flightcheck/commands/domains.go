package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JNZader/flightcheck/internal/rules"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List the available domains",
	Long: `List every domain of the loaded catalogs with its rule counts.

Examples:
  # Embedded domains only
  flightcheck domains

  # Include a team catalog directory
  flightcheck domains --catalog-dir ./catalogs`,

	Args: usageArgs(cobra.NoArgs),
	RunE: runDomains,
}

var rulesCmd = &cobra.Command{
	Use:   "rules <domain>",
	Short: "List the rules of a domain",
	Long: `List the rules of one domain in declaration order.

Examples:
  # All bash rules
  flightcheck rules bash

  # Only the MUST rules
  flightcheck rules bash --severity must`,

	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(domainsCmd)
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().String("severity", "", "only list rules of this severity")
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func runDomains(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}

	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Domain", "Version", "Never", "Must", "Should", "Guidance", "Source"})
	for _, set := range cat.Sets() {
		counts := set.CountBySeverity()
		t.AppendRow(table.Row{
			set.Name(),
			set.Version(),
			counts[rules.SeverityNever],
			counts[rules.SeverityMust],
			counts[rules.SeverityShould],
			counts[rules.SeverityGuidance],
			set.Source(),
		})
	}
	t.Render()
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}
	set, err := cat.Get(args[0])
	if err != nil {
		return err
	}

	list := set.Rules()
	if s, _ := cmd.Flags().GetString("severity"); s != "" {
		sev, err := rules.ParseSeverity(s)
		if err != nil {
			return &usageError{err: err}
		}
		list = rules.BySeverity(set, sev)
	}

	t := newTable(cmd.OutOrStdout())
	t.SetTitle(fmt.Sprintf("%s %s", set.Name(), set.Version()))
	t.AppendHeader(table.Row{"ID", "Severity", "Kind", "Mechanical", "Title"})
	for _, r := range list {
		kind := string(r.Kind())
		if kind == "" {
			kind = "-"
		}
		mechanical := "no"
		if r.Mechanical() {
			mechanical = "yes"
		}
		t.AppendRow(table.Row{r.ID(), r.Severity(), kind, mechanical, r.Title()})
	}
	t.Render()
	return nil
}
