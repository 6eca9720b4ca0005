// Package metrics collects run metrics and exports them as JSON or in the
// Prometheus text format.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metric names recorded by the engine.
const (
	MetricRuns            = "flightcheck_runs_total"
	MetricFilesRead       = "flightcheck_files_read_total"
	MetricFilesUnreadable = "flightcheck_files_unreadable_total"
	MetricFindings        = "flightcheck_findings_total"
	MetricCacheHits       = "flightcheck_cache_hits_total"
	MetricCacheMisses     = "flightcheck_cache_misses_total"
	MetricRunDuration     = "flightcheck_run_duration"
	MetricRuleDuration    = "flightcheck_rule_duration"
)

// defaultSamples bounds the values kept per histogram.
const defaultSamples = 1000

// Collector collects and manages metrics. The zero value is not usable;
// use NewCollector.
type Collector struct {
	mu        sync.RWMutex
	counters  map[string]*Counter
	timers    map[string]*Timer
	startTime time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]*Counter),
		timers:    make(map[string]*Timer),
		startTime: time.Now(),
	}
}

// Counter is a monotonically increasing counter.
type Counter struct {
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add adds n to the counter.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Histogram keeps the most recent observed values.
type Histogram struct {
	mu     sync.Mutex
	values []float64
	max    int
}

// NewHistogram creates a histogram holding at most maxValues samples.
func NewHistogram(maxValues int) *Histogram {
	return &Histogram{
		values: make([]float64, 0, maxValues),
		max:    maxValues,
	}
}

// Observe records a value, discarding the oldest when full.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.values) >= h.max {
		h.values = h.values[1:]
	}
	h.values = append(h.values, v)
}

// Stats returns histogram statistics.
func (h *Histogram) Stats() HistogramStats {
	h.mu.Lock()
	sorted := append([]float64(nil), h.values...)
	h.mu.Unlock()

	if len(sorted) == 0 {
		return HistogramStats{}
	}
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	n := len(sorted)
	return HistogramStats{
		Count: n,
		Sum:   sum,
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n*50/100],
		P90:   sorted[n*90/100],
		P99:   sorted[n*99/100],
	}
}

// HistogramStats contains histogram statistics.
type HistogramStats struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P99   float64 `json:"p99"`
}

// Timer measures durations in seconds.
type Timer struct {
	histogram *Histogram
}

// Start starts a new timer context.
func (t *Timer) Start() *TimerContext {
	return &TimerContext{timer: t, start: time.Now()}
}

// Observe records a duration.
func (t *Timer) Observe(d time.Duration) {
	t.histogram.Observe(d.Seconds())
}

// Stats returns the statistics of the recorded durations.
func (t *Timer) Stats() HistogramStats { return t.histogram.Stats() }

// TimerContext represents an active timer.
type TimerContext struct {
	timer *Timer
	start time.Time
}

// Stop stops the timer and records the duration.
func (tc *TimerContext) Stop() time.Duration {
	d := time.Since(tc.start)
	tc.timer.Observe(d)
	return d
}

// Counter returns or creates a counter.
func (c *Collector) Counter(name string) *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, ok := c.counters[name]; ok {
		return counter
	}
	counter := &Counter{}
	c.counters[name] = counter
	return counter
}

// Timer returns or creates a timer.
func (c *Collector) Timer(name string) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.timers[name]; ok {
		return timer
	}
	timer := &Timer{histogram: NewHistogram(defaultSamples)}
	c.timers[name] = timer
	return timer
}

// RuleTimer returns the timer of one rule's matching.
func (c *Collector) RuleTimer(ruleID string) *Timer {
	return c.Timer(Labeled(MetricRuleDuration, "rule", ruleID))
}

// Labeled appends a single Prometheus label to a metric name.
func Labeled(name, label, value string) string {
	value = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(value)
	return fmt.Sprintf(`%s{%s="%s"}`, name, label, value)
}

// Uptime returns the duration since the collector was created.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	Uptime   string                    `json:"uptime"`
	Counters map[string]int64          `json:"counters"`
	Timers   map[string]HistogramStats `json:"timers"`
}

// Snapshot copies the current metric values.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:   c.Uptime().String(),
		Counters: make(map[string]int64, len(c.counters)),
		Timers:   make(map[string]HistogramStats, len(c.timers)),
	}
	for name, counter := range c.counters {
		s.Counters[name] = counter.Value()
	}
	for name, timer := range c.timers {
		s.Timers[name] = timer.Stats()
	}
	return s
}

// Export exports metrics to JSON.
func (c *Collector) Export() ([]byte, error) {
	return json.MarshalIndent(c.Snapshot(), "", "  ")
}

// WritePrometheus writes the metrics in the Prometheus text format, sorted
// by name. Timers are written as summaries in seconds.
func (c *Collector) WritePrometheus(w io.Writer) error {
	s := c.Snapshot()
	var sb strings.Builder

	typed := map[string]bool{}
	writeType := func(name, kind string) {
		if base := baseName(name); !typed[base] {
			typed[base] = true
			fmt.Fprintf(&sb, "# TYPE %s %s\n", base, kind)
		}
	}

	for _, name := range sortedKeys(s.Counters) {
		writeType(name, "counter")
		fmt.Fprintf(&sb, "%s %d\n", name, s.Counters[name])
	}

	for _, name := range sortedKeys(s.Timers) {
		stats := s.Timers[name]
		base, labels := splitLabels(name)
		metric := base + "_seconds"
		writeType(metric, "summary")
		for _, q := range []struct {
			quantile string
			value    float64
		}{{"0.5", stats.P50}, {"0.9", stats.P90}, {"0.99", stats.P99}} {
			fmt.Fprintf(&sb, "%s{%squantile=%q} %g\n", metric, labels, q.quantile, q.value)
		}
		fmt.Fprintf(&sb, "%s_sum%s %g\n", metric, braced(labels), stats.Sum)
		fmt.Fprintf(&sb, "%s_count%s %d\n", metric, braced(labels), stats.Count)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// Reset resets all metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counters = make(map[string]*Counter)
	c.timers = make(map[string]*Timer)
	c.startTime = time.Now()
}

func baseName(name string) string {
	base, _ := splitLabels(name)
	return base
}

// splitLabels splits `name{a="b"}` into the name and `a="b",`.
func splitLabels(name string) (string, string) {
	i := strings.IndexByte(name, '{')
	if i < 0 || !strings.HasSuffix(name, "}") {
		return name, ""
	}
	return name[:i], name[i+1:len(name)-1] + ","
}

func braced(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + strings.TrimSuffix(labels, ",") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
