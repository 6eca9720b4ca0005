package commands

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JNZader/flightcheck/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded validation runs",
	Long: `Display validation runs recorded with --record or history.enabled.

Run ids can be abbreviated to any unique prefix.

Examples:
  # The last runs
  flightcheck history

  # Only bash runs, at most 5
  flightcheck history --domain bash --limit 5

  # One run with every rule outcome
  flightcheck history show 3f2a

  # Which bash rules fail most often
  flightcheck history stats bash

  # Keep only the newest 100 runs
  flightcheck history prune --keep 100`,

	Args: usageArgs(cobra.NoArgs),
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded run",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runHistoryShow,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats <domain>",
	Short: "Show how often each rule of a domain failed",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runHistoryStats,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyPruneCmd)

	historyCmd.Flags().Int("limit", 20, "number of runs to show")
	historyCmd.Flags().String("domain", "", "only show runs of this domain")
	historyPruneCmd.Flags().Int("keep", 0, "number of runs to keep (default: history.max_runs)")
}

func openHistory() (*history.Store, error) {
	store, err := history.NewStore(history.StoreConfig{Path: cfg.History.Path})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	domain, _ := cmd.Flags().GetString("domain")
	runs, err := store.List(cmd.Context(), history.ListQuery{Domain: domain, Limit: limit})
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Domain", "Started", "Files", "Pass", "Fail", "Warn", "Result"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			shortID(r.ID), r.Domain, humanize.Time(r.StartedAt),
			r.Files, r.Pass, r.Fail, r.Warn, r.Verdict,
		})
	}
	t.Render()
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Domain:   %s %s\n", run.Domain, run.Version)
	fmt.Fprintf(out, "Root:     %s\n", run.Root)
	fmt.Fprintf(out, "Started:  %s (%s)\n", run.StartedAt.Format(time.RFC3339), humanize.Time(run.StartedAt))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Files:    %d\n", run.Files)
	if run.Applicable >= 0 {
		fmt.Fprintf(out, "Applicable files: %d\n", run.Applicable)
	}
	if run.ReadErrors > 0 {
		fmt.Fprintf(out, "Unreadable files: %d\n", run.ReadErrors)
	}
	fmt.Fprintf(out, "Result:   %s (pass %d, fail %d, warn %d, exit %d)\n\n",
		run.Verdict, run.Pass, run.Fail, run.Warn, run.ExitCode)

	if len(run.Rules) == 0 {
		return nil
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Severity", "Status", "Findings", "Title"})
	for _, r := range run.Rules {
		t.AppendRow(table.Row{r.RuleID, r.Severity, r.Status, r.Findings, r.Title})
	}
	t.Render()
	return nil
}

func runHistoryStats(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.RuleStats(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("computing rule stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(stats) == 0 {
		fmt.Fprintf(out, "No recorded runs for domain %s.\n", args[0])
		return nil
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Runs", "Failures", "Warnings", "Last failed"})
	for _, s := range stats {
		last := "never"
		if !s.LastFailed.IsZero() {
			last = humanize.Time(s.LastFailed)
		}
		t.AppendRow(table.Row{s.RuleID, s.Runs, s.Failures, s.Warnings, last})
	}
	t.Render()
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	keep, _ := cmd.Flags().GetInt("keep")
	if keep <= 0 {
		keep = cfg.History.MaxRuns
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Prune(cmd.Context(), keep)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s), kept at most %d.\n", n, keep)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
