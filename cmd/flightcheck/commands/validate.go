package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/JNZader/flightcheck/internal/cache"
	"github.com/JNZader/flightcheck/internal/engine"
	"github.com/JNZader/flightcheck/internal/history"
	"github.com/JNZader/flightcheck/internal/metrics"
	"github.com/JNZader/flightcheck/internal/profiler"
	"github.com/JNZader/flightcheck/internal/report"
	"github.com/JNZader/flightcheck/internal/resolve"
	"github.com/JNZader/flightcheck/internal/rules"
	"github.com/JNZader/flightcheck/internal/watch"
)

var validateCmd = &cobra.Command{
	Use:   "validate <domain> [file-or-glob ...]",
	Short: "Validate files against a domain's rules",
	Long: `Validate files against the rules of one domain.

Without file arguments the domain's default file patterns are expanded
below --root. Arguments may be files, directories (expanded with the
domain's patterns) or doublestar globs.

The exit code is the number of failed NEVER/MUST rules (at most 119).
120 means a bad path or glob, 121 a broken catalog or unknown domain and
122 any other error.

Examples:
  # Validate the current directory
  flightcheck validate bash

  # Validate two files and write SARIF for code scanning
  flightcheck validate go main.go util.go --format sarif -o results.sarif

  # Re-run on every change
  flightcheck validate python --watch`,

	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	f := validateCmd.Flags()
	f.StringP("format", "f", "text", "output format: text, json, sarif, markdown")
	f.StringP("output", "o", "", "write the report to a file instead of stdout")
	f.String("color", "auto", "colour mode: auto, always, never")
	f.Int("fail-detail", report.DefaultFailDetail, "findings listed per failed rule")
	f.Int("warn-detail", report.DefaultWarnDetail, "findings listed per warning rule")
	f.IntP("workers", "j", 0, "parallel workers (0 = number of CPUs)")
	f.Int64("max-file-bytes", engine.DefaultMaxFileBytes, "skip files larger than this")
	f.String("root", ".", "directory default patterns are expanded in")
	f.Duration("timeout", 0, "abort the run after this long (0 = no limit)")
	f.BoolP("watch", "w", false, "re-run whenever a matching file changes")
	f.Bool("record", false, "record the run in the history database")
	f.Bool("cache", false, "use the persistent findings cache")
	f.String("cpuprofile", "", "write a CPU profile to this file")
	f.String("memprofile", "", "write a heap profile to this file")
	f.String("metrics", "", "write run metrics to this file (Prometheus text, or JSON for .json)")
}

// validation is one configured validate invocation. run may be called
// repeatedly in watch mode.
type validation struct {
	set     *rules.RuleSet
	args    []string
	root    string
	engine  *engine.Engine
	out     io.Writer
	output  string
	history *history.Store
	log     *slog.Logger

	mu       sync.Mutex
	resolved map[string]bool
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}
	watching, _ := cmd.Flags().GetBool("watch")

	cpuProfile, _ := cmd.Flags().GetString("cpuprofile")
	memProfile, _ := cmd.Flags().GetString("memprofile")
	if pcfg := (profiler.Config{CPUProfile: cpuProfile, MemProfile: memProfile}); pcfg.Enabled() {
		prof, err := profiler.New(pcfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := prof.Stop(); err != nil {
				log.Error("profiler stop failed", "error", err)
			}
			log.Debug("profile written", "took", prof.Duration(), "memory", profiler.Stats().String())
		}()
	}

	cat, err := loadCatalog(ctx)
	if err != nil {
		return err
	}
	set, err := cat.Get(args[0])
	if err != nil {
		return err
	}
	set, err = rules.Select(set, cfg.Rules.Enabled, cfg.Rules.Disabled)
	if err != nil {
		return err
	}

	metricsFile, _ := cmd.Flags().GetString("metrics")
	var collector *metrics.Collector
	if metricsFile != "" {
		collector = metrics.NewCollector()
		defer func() {
			if err := writeMetrics(collector, metricsFile); err != nil {
				log.Error("writing metrics failed", "path", metricsFile, "error", err)
			}
		}()
	}

	findings, err := openCache(watching)
	if err != nil {
		return err
	}
	if findings != nil {
		defer findings.Close()
	}

	v := &validation{
		set:    set,
		args:   args[1:],
		root:   cfg.Run.Root,
		out:    cmd.OutOrStdout(),
		output: cfg.Report.Output,
		log:    componentLog("validate"),
		engine: engine.New(engine.Options{
			Workers:      cfg.Run.Workers,
			MaxFileBytes: cfg.Run.MaxFileBytes,
			Root:         cfg.Run.Root,
			Cache:        findings,
			Metrics:      collector,
			Logger:       log,
		}),
	}

	if cfg.History.Enabled {
		store, err := history.NewStore(history.StoreConfig{Path: cfg.History.Path})
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer store.Close()
		v.history = store
	}

	result, err := v.run(ctx)
	if err != nil {
		return err
	}
	if !watching {
		return failureExit(result.Fail)
	}
	return v.watch(ctx)
}

// writeMetrics writes the collected metrics, as JSON when path ends in
// .json and in the Prometheus text format otherwise.
func writeMetrics(c *metrics.Collector, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var data []byte
		if data, err = c.Export(); err == nil {
			_, err = f.Write(append(data, '\n'))
		}
	} else {
		err = c.WritePrometheus(f)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// openCache returns the persistent cache when enabled, an in-memory cache
// in watch mode, or nil.
func openCache(watching bool) (cache.Cache, error) {
	switch {
	case cfg.Cache.Enabled:
		c, err := cache.NewBadgerCache(cache.BadgerOptions{Dir: cfg.Cache.Dir, TTL: cfg.Cache.TTL})
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		return c, nil
	case watching:
		return cache.NewLRUCache(cfg.Cache.MaxEntries, 0), nil
	default:
		return nil, nil
	}
}

// run resolves files, evaluates the rule set, writes the report and
// records the run.
func (v *validation) run(ctx context.Context) (*engine.RunResult, error) {
	started := time.Now()

	files, err := resolve.Resolve(v.args, v.set.FilePatterns(), resolve.Options{
		Root:    v.root,
		Exclude: append(append([]string{}, v.set.ExcludePatterns()...), cfg.Run.Exclude...),
	})
	if err != nil {
		return nil, err
	}
	v.remember(files)
	v.log.Debug("files resolved", "domain", v.set.Name(), "count", len(files))

	result, err := v.engine.Run(ctx, v.set, files)
	if err != nil {
		return nil, err
	}
	if err := v.writeReport(result); err != nil {
		return nil, err
	}

	if v.history != nil {
		rec := history.NewRecord(result, v.root, started, time.Since(started))
		if err := v.history.Record(ctx, rec); err != nil {
			v.log.Warn("recording run failed", "error", err)
		} else if cfg.History.MaxRuns > 0 {
			if _, err := v.history.Prune(ctx, cfg.History.MaxRuns); err != nil {
				v.log.Warn("pruning history failed", "error", err)
			}
		}
	}
	return result, nil
}

func (v *validation) writeReport(result *engine.RunResult) error {
	out := v.out
	if v.output != "" {
		f, err := os.Create(v.output)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	reporter, err := report.NewReporter(cfg.Report.Format, report.Options{
		FailDetail:  cfg.Report.FailDetail,
		WarnDetail:  cfg.Report.WarnDetail,
		Profile:     report.ColorProfile(cfg.Report.Color, out),
		ToolVersion: Version,
	})
	if err != nil {
		return &usageError{err: err}
	}
	if err := reporter.Write(result, out); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func (v *validation) remember(files resolve.FileList) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resolved = make(map[string]bool, len(files))
	for _, f := range files {
		v.resolved[f] = true
	}
}

// relevant reports whether a changed path can affect the next run: it was
// part of the last run or matches the domain's file patterns.
func (v *validation) relevant(path string) bool {
	v.mu.Lock()
	known := v.resolved[path]
	v.mu.Unlock()
	if known {
		return true
	}

	rel, err := filepath.Rel(v.root, path)
	if err != nil {
		return false
	}
	for _, p := range v.set.FilePatterns() {
		if ok, _ := resolve.MatchPath(p, rel); ok {
			return true
		}
	}
	return false
}

func (v *validation) watch(ctx context.Context) error {
	w, err := watch.New(watch.Options{
		Root:   v.root,
		Match:  v.relevant,
		Logger: log,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	v.log.Info("watching for changes", "root", v.root)
	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		v.log.Debug("re-running", "changed", changed)
		_, err := v.run(ctx)
		return err
	})
}
