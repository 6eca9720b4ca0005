package metrics

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	c := NewCollector()

	counter := c.Counter("test_counter")
	counter.Inc()
	counter.Inc()
	counter.Add(5)

	assert.Equal(t, int64(7), counter.Value())
	assert.Same(t, counter, c.Counter("test_counter"))
}

func TestCounter_Concurrent(t *testing.T) {
	counter := &Counter{}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				counter.Inc()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), counter.Value())
}

func TestHistogram(t *testing.T) {
	hist := NewHistogram(100)
	for i := 1; i <= 100; i++ {
		hist.Observe(float64(i))
	}

	stats := hist.Stats()
	assert.Equal(t, 100, stats.Count)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 100.0, stats.Max)
	assert.Equal(t, 50.5, stats.Avg)
	assert.Equal(t, 5050.0, stats.Sum)
	assert.Equal(t, 51.0, stats.P50)
	assert.Equal(t, 91.0, stats.P90)
}

func TestHistogram_Rotation(t *testing.T) {
	hist := NewHistogram(10)
	for i := 1; i <= 15; i++ {
		hist.Observe(float64(i))
	}

	stats := hist.Stats()
	assert.Equal(t, 10, stats.Count)
	assert.Equal(t, 6.0, stats.Min, "oldest values are discarded")
}

func TestHistogram_Empty(t *testing.T) {
	assert.Equal(t, HistogramStats{}, NewHistogram(10).Stats())
}

func TestTimer(t *testing.T) {
	timer := NewCollector().Timer("test_timer")

	ctx := timer.Start()
	time.Sleep(10 * time.Millisecond)
	d := ctx.Stop()
	assert.GreaterOrEqual(t, d, 10*time.Millisecond)

	timer.Observe(2 * time.Second)
	stats := timer.Stats()
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 2.0, stats.Max)
}

func TestLabeled(t *testing.T) {
	assert.Equal(t, `flightcheck_rule_duration{rule="N1"}`, Labeled(MetricRuleDuration, "rule", "N1"))
	assert.Equal(t, `m{rule="a\"b"}`, Labeled("m", "rule", `a"b`))
}

func TestExportJSON(t *testing.T) {
	c := NewCollector()
	c.Counter(MetricFilesRead).Add(10)
	c.RuleTimer("N1").Observe(time.Second)

	data, err := c.Export()
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, int64(10), got.Counters[MetricFilesRead])
	assert.Equal(t, 1, got.Timers[`flightcheck_rule_duration{rule="N1"}`].Count)
}

func TestWritePrometheus(t *testing.T) {
	c := NewCollector()
	c.Counter(MetricRuns).Inc()
	c.Counter(MetricFilesRead).Add(3)
	c.RuleTimer("N1").Observe(time.Second)
	c.RuleTimer("N1").Observe(3 * time.Second)
	c.Timer(MetricRunDuration).Observe(2 * time.Second)

	var buf bytes.Buffer
	require.NoError(t, c.WritePrometheus(&buf))

	want := `# TYPE flightcheck_files_read_total counter
flightcheck_files_read_total 3
# TYPE flightcheck_runs_total counter
flightcheck_runs_total 1
# TYPE flightcheck_rule_duration_seconds summary
flightcheck_rule_duration_seconds{rule="N1",quantile="0.5"} 3
flightcheck_rule_duration_seconds{rule="N1",quantile="0.9"} 3
flightcheck_rule_duration_seconds{rule="N1",quantile="0.99"} 3
flightcheck_rule_duration_seconds_sum{rule="N1"} 4
flightcheck_rule_duration_seconds_count{rule="N1"} 2
# TYPE flightcheck_run_duration_seconds summary
flightcheck_run_duration_seconds{quantile="0.5"} 2
flightcheck_run_duration_seconds{quantile="0.9"} 2
flightcheck_run_duration_seconds{quantile="0.99"} 2
flightcheck_run_duration_seconds_sum 2
flightcheck_run_duration_seconds_count 1
`
	assert.Equal(t, want, buf.String())
}

func TestReset(t *testing.T) {
	c := NewCollector()
	c.Counter("test").Inc()

	c.Reset()
	assert.Zero(t, c.Counter("test").Value())
	assert.Empty(t, c.Snapshot().Timers)
}

func BenchmarkCounter_Inc(b *testing.B) {
	counter := &Counter{}
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			counter.Inc()
		}
	})
}

func BenchmarkTimer_StartStop(b *testing.B) {
	timer := NewCollector().Timer("bench_timer")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		timer.Start().Stop()
	}
}
