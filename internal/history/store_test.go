package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JNZader/flightcheck/internal/engine"
	"github.com/JNZader/flightcheck/internal/match"
	"github.com/JNZader/flightcheck/internal/rules"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{Path: filepath.Join(t.TempDir(), "nested", "history.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord(domain string, started time.Time, fail int) *RunRecord {
	result := &engine.RunResult{
		Domain:     domain,
		Version:    "1.0.0",
		Files:      3,
		Applicable: -1,
		Pass:       1,
		Fail:       fail,
		Outcomes: []engine.Outcome{
			{RuleID: "N1", Title: "No eval", Severity: rules.SeverityNever, Status: engine.StatusPass},
		},
	}
	if fail > 0 {
		result.Outcomes = append(result.Outcomes, engine.Outcome{
			RuleID: "M1", Title: "Strict mode", Severity: rules.SeverityMust, Status: engine.StatusFail,
			Findings: []match.Finding{{Path: "a.sh"}, {Path: "b.sh"}},
		})
	}
	return NewRecord(result, "/src", started, 1500*time.Millisecond)
}

func TestNewStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStore(StoreConfig{Path: dbPath})
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was created")

	_, err = NewStore(StoreConfig{})
	assert.Error(t, err)
}

func TestRecordAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := sampleRecord("bash", started, 1)
	require.NoError(t, store.Record(ctx, rec))
	require.NotEmpty(t, rec.ID, "an id is assigned on insert")

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "bash", got.Domain)
	assert.Equal(t, "/src", got.Root)
	assert.Equal(t, started, got.StartedAt)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, 1, got.ExitCode)
	assert.Equal(t, "FAIL", got.Verdict)
	assert.Equal(t, []RuleRecord{
		{RuleID: "N1", Title: "No eval", Severity: "NEVER", Status: "pass", Findings: 0},
		{RuleID: "M1", Title: "Strict mode", Severity: "MUST", Status: "fail", Findings: 2},
	}, got.Rules)

	byPrefix, err := store.Get(ctx, rec.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byPrefix.ID)
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_AmbiguousPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	a := sampleRecord("go", now, 0)
	a.ID = "abc-1"
	b := sampleRecord("go", now, 0)
	b.ID = "abc-2"
	require.NoError(t, store.Record(ctx, a))
	require.NoError(t, store.Record(ctx, b))

	_, err := store.Get(ctx, "abc")
	assert.ErrorContains(t, err, "ambiguous")

	got, err := store.Get(ctx, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, "abc-2", got.ID)
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, sampleRecord("bash", base.Add(time.Duration(i)*time.Hour), i%2)))
	}
	require.NoError(t, store.Record(ctx, sampleRecord("go", base, 0)))

	tests := []struct {
		name  string
		query ListQuery
		want  int
	}{
		{"all", ListQuery{}, 6},
		{"by domain", ListQuery{Domain: "bash"}, 5},
		{"limit", ListQuery{Limit: 2}, 2},
		{"offset", ListQuery{Domain: "bash", Offset: 4}, 1},
		{"since", ListQuery{Since: base.Add(3 * time.Hour)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.query)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	newest, err := store.List(ctx, ListQuery{Domain: "bash", Limit: 1})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, base.Add(4*time.Hour), newest[0].StartedAt)
	assert.Nil(t, newest[0].Rules, "list does not load rule outcomes")
}

func TestRuleStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, sampleRecord("bash", base, 1)))
	require.NoError(t, store.Record(ctx, sampleRecord("bash", base.Add(time.Hour), 1)))
	require.NoError(t, store.Record(ctx, sampleRecord("bash", base.Add(2*time.Hour), 0)))

	stats, err := store.RuleStats(ctx, "bash")
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "M1", stats[0].RuleID)
	assert.Equal(t, 2, stats[0].Runs)
	assert.Equal(t, 2, stats[0].Failures)
	assert.Equal(t, base.Add(time.Hour), stats[0].LastFailed)

	assert.Equal(t, "N1", stats[1].RuleID)
	assert.Equal(t, 3, stats[1].Runs)
	assert.Zero(t, stats[1].Failures)
	assert.True(t, stats[1].LastFailed.IsZero())
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 4; i++ {
		rec := sampleRecord("bash", base.Add(time.Duration(i)*time.Minute), 1)
		require.NoError(t, store.Record(ctx, rec))
		ids = append(ids, rec.ID)
	}

	removed, err := store.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	left, err := store.List(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, ids[3], left[0].ID)

	_, err = store.Get(ctx, ids[0])
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := store.RuleStats(ctx, "bash")
	require.NoError(t, err)
	for _, s := range stats {
		assert.Equal(t, 1, s.Runs, "outcomes of pruned runs are gone")
	}
}
