// Package engine applies a rule set to a file set and aggregates the
// pass/fail/warn outcome.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/JNZader/flightcheck/internal/cache"
	"github.com/JNZader/flightcheck/internal/match"
	"github.com/JNZader/flightcheck/internal/metrics"
	"github.com/JNZader/flightcheck/internal/resolve"
	"github.com/JNZader/flightcheck/internal/rules"
	"github.com/JNZader/flightcheck/internal/worker"
)

// Options configures an Engine.
type Options struct {
	// Workers bounds file reads and matcher tasks (default: GOMAXPROCS).
	Workers int

	// MaxFileBytes is the size cap per file (default: DefaultMaxFileBytes).
	MaxFileBytes int64

	// Root is the directory set-level checks such as file_exists look in.
	Root string

	// Cache, when set, memoizes per-file findings by content.
	Cache cache.Cache

	// Metrics, when set, receives file counts, cache lookups and rule
	// timings.
	Metrics *metrics.Collector

	Logger *slog.Logger
}

// Engine runs rule sets. It is safe for repeated use; a configured cache
// carries over between runs.
type Engine struct {
	opts Options
	log  *slog.Logger
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{opts: opts, log: log.With("component", "engine")}
}

// scanned is one readable file.
type scanned struct {
	src  *match.Source
	hash string
}

// matchTask evaluates one rule against one file, or against the whole
// corpus for set-level rules. Each task owns its result slot.
func matchTask(id string, timer *metrics.Timer, run func() []match.Finding, result *[]match.Finding) worker.Task {
	return worker.NewFuncTask(id, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if timer != nil {
			defer timer.Start().Stop()
		}
		*result = run()
		return nil
	})
}

// Run evaluates every mechanical rule of set against files. Files that
// cannot be read are reported in the result, not as an error; the error
// return is reserved for cancellation.
func (e *Engine) Run(ctx context.Context, set *rules.RuleSet, files resolve.FileList) (*RunResult, error) {
	if m := e.opts.Metrics; m != nil {
		m.Counter(metrics.MetricRuns).Inc()
		defer m.Timer(metrics.MetricRunDuration).Start().Stop()
	}

	result := &RunResult{
		Domain:     set.Name(),
		Version:    set.Version(),
		Applicable: -1,
		Outcomes:   []Outcome{},
	}
	if set.Classifier() != nil {
		result.Applicable = 0
	}

	if files.Empty() {
		e.log.Info("no files matched", "domain", set.Name())
		result.Skipped = true
		return result, nil
	}

	docs, readErrs, err := e.readAll(ctx, files)
	if err != nil {
		return nil, err
	}
	result.Files = len(docs)
	result.ReadErrors = readErrs
	if m := e.opts.Metrics; m != nil {
		m.Counter(metrics.MetricFilesRead).Add(int64(len(docs)))
		m.Counter(metrics.MetricFilesUnreadable).Add(int64(len(readErrs)))
	}

	all := make([]*match.Source, len(docs))
	for i, d := range docs {
		all[i] = d.src
	}

	applicable := docs
	if c := set.Classifier(); c != nil {
		byPath := make(map[string]scanned, len(docs))
		paths := make(resolve.FileList, len(docs))
		for i, d := range docs {
			byPath[d.src.Path] = d
			paths[i] = d.src.Path
		}
		subset, _ := c.Classify(paths, func(path string) (string, bool) {
			d, ok := byPath[path]
			if !ok {
				return "", false
			}
			return d.src.Text, true
		})
		applicable = make([]scanned, len(subset))
		for i, path := range subset {
			applicable[i] = byPath[path]
		}
		result.Applicable = len(applicable)
	}

	evaluated := set.Evaluated()
	slots := make([][][]match.Finding, len(evaluated))
	vacuous := make([]bool, len(evaluated))
	var tasks []worker.Task

	for i, r := range evaluated {
		var timer *metrics.Timer
		if e.opts.Metrics != nil {
			timer = e.opts.Metrics.RuleTimer(r.ID())
		}

		targets := docs
		if r.ApplicableOnly() && set.Classifier() != nil {
			targets = applicable
			if len(targets) == 0 {
				vacuous[i] = true
				continue
			}
		}

		if sm := r.SetMatcher(); sm != nil {
			corpus := &match.Corpus{FS: os.DirFS(e.opts.Root)}
			for _, d := range targets {
				corpus.Sources = append(corpus.Sources, d.src)
			}
			slots[i] = make([][]match.Finding, 1)
			tasks = append(tasks, matchTask(r.ID()+"#set", timer,
				func() []match.Finding { return sm.MatchSet(corpus) }, &slots[i][0]))
			continue
		}

		fm := r.FileMatcher()
		slots[i] = make([][]match.Finding, len(targets))
		for j, d := range targets {
			tasks = append(tasks, matchTask(fmt.Sprintf("%s#%d", r.ID(), j), timer,
				func() []match.Finding { return e.matchFile(set, r, fm, d) }, &slots[i][j]))
		}
	}

	stats, err := worker.Run(ctx, worker.Config{Workers: e.opts.Workers}, tasks)
	if err != nil {
		return nil, err
	}
	e.log.Debug("rules evaluated", "domain", set.Name(), "tasks", len(tasks), "pool", stats.String())

	for i, r := range evaluated {
		out := Outcome{
			RuleID:   r.ID(),
			Title:    r.Title(),
			Severity: r.Severity(),
			Kind:     r.Kind(),
			Status:   StatusPass,
			Vacuous:  vacuous[i],
			Findings: []match.Finding{},
		}
		for _, f := range slots[i] {
			out.Findings = append(out.Findings, f...)
		}
		match.SortFindings(out.Findings)
		if m := e.opts.Metrics; m != nil {
			m.Counter(metrics.MetricFindings).Add(int64(len(out.Findings)))
		}

		switch {
		case len(out.Findings) == 0:
			result.Pass++
		case r.Severity().Hard():
			out.Status = StatusFail
			result.Fail++
		default:
			out.Status = StatusWarn
			result.Warn++
		}
		result.Outcomes = append(result.Outcomes, out)
	}

	for _, s := range set.Info() {
		result.Info = append(result.Info, InfoResult{ID: s.ID, Label: s.Label, Value: s.Compute(all)})
	}

	e.log.Info("run complete",
		"domain", set.Name(),
		"files", result.Files,
		"pass", result.Pass,
		"fail", result.Fail,
		"warn", result.Warn,
		"findings", result.FindingCount(),
		"read_errors", len(result.ReadErrors))
	return result, nil
}

// matchFile applies a file matcher, consulting the cache when configured.
// Cached findings are stored without a path so that identical content at
// another path shares the entry.
func (e *Engine) matchFile(set *rules.RuleSet, r *rules.Rule, fm match.FileMatcher, d scanned) []match.Finding {
	if e.opts.Cache == nil {
		return fm.Match(d.src)
	}

	key := cache.ComputeKey(set.Fingerprint(), r.ID(), d.hash)
	if cached, ok, err := e.opts.Cache.Get(key); err != nil {
		e.log.Warn("cache read failed", "error", err)
	} else if ok {
		e.count(metrics.MetricCacheHits)
		for i := range cached {
			cached[i].Path = d.src.Path
		}
		return cached
	}

	e.count(metrics.MetricCacheMisses)
	findings := fm.Match(d.src)
	stored := make([]match.Finding, len(findings))
	for i, f := range findings {
		f.Path = ""
		stored[i] = f
	}
	if err := e.opts.Cache.Set(key, stored); err != nil {
		e.log.Warn("cache write failed", "error", err)
	}
	return findings
}

func (e *Engine) count(name string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.Counter(name).Inc()
	}
}

// readAll reads files concurrently. The returned documents keep the order
// of files; unreadable files become FileReadErrors in the same order.
func (e *Engine) readAll(ctx context.Context, files resolve.FileList) ([]scanned, []*FileReadError, error) {
	docs := make([]*scanned, len(files))
	errs := make([]*FileReadError, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := readFile(path, e.opts.MaxFileBytes)
			if err != nil {
				errs[i] = &FileReadError{Path: path, Err: err}
				return nil
			}
			hash := ""
			if e.opts.Cache != nil {
				hash = cache.ContentHash(data)
			}
			docs[i] = &scanned{src: match.NewSource(path, data), hash: hash}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []scanned
	var readErrs []*FileReadError
	for i := range files {
		if errs[i] != nil {
			e.log.Warn("skipping unreadable file", "path", errs[i].Path, "error", errs[i].Err)
			readErrs = append(readErrs, errs[i])
			continue
		}
		out = append(out, *docs[i])
	}
	return out, readErrs, nil
}
