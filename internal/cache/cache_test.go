package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JNZader/flightcheck/internal/match"
)

var sample = []match.Finding{{Line: 3, Excerpt: "cat /tmp/x"}}

func TestLRUCache(t *testing.T) {
	c := NewLRUCache(2, time.Hour)

	require.NoError(t, c.Set("key1", sample))

	got, found, err := c.Get("key1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sample, got)

	_, found, err = c.Get("nonexistent")
	require.NoError(t, err)
	assert.False(t, found)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.001)
}

func TestLRUCache_EmptyResultIsAHit(t *testing.T) {
	c := NewLRUCache(4, 0)
	require.NoError(t, c.Set("clean", nil))

	got, found, err := c.Get("clean")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLRUCache_ReturnsCopies(t *testing.T) {
	c := NewLRUCache(4, 0)
	require.NoError(t, c.Set("k", sample))

	got, _, _ := c.Get("k")
	got[0].Path = "changed.sh"

	again, _, _ := c.Get("k")
	assert.Empty(t, again[0].Path)
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(2, time.Hour)

	_ = c.Set("key1", sample)
	_ = c.Set("key2", sample)
	_, _, _ = c.Get("key1") // key2 is now the oldest
	_ = c.Set("key3", sample)

	_, found, _ := c.Get("key2")
	assert.False(t, found, "key2 should be evicted")
	_, found, _ = c.Get("key1")
	assert.True(t, found)
	assert.Equal(t, 2, c.Stats().Entries)
}

func TestLRUExpiration(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)
	_ = c.Set("key1", sample)

	time.Sleep(20 * time.Millisecond)

	_, found, _ := c.Get("key1")
	assert.False(t, found, "key1 should be expired")
	assert.Zero(t, c.Stats().Entries)
}

func TestLRUDeleteAndClear(t *testing.T) {
	c := NewLRUCache(10, 0)
	_ = c.Set("a", sample)
	_ = c.Set("b", sample)

	require.NoError(t, c.Delete("a"))
	_, found, _ := c.Get("a")
	assert.False(t, found)

	require.NoError(t, c.Clear())
	assert.Zero(t, c.Stats().Entries)
	assert.NoError(t, c.Close())
}

func TestComputeKey(t *testing.T) {
	assert.Equal(t, ComputeKey("a", "b"), ComputeKey("a", "b"))
	assert.NotEqual(t, ComputeKey("ab", "c"), ComputeKey("a", "bc"))
	assert.Len(t, ComputeKey("x"), 64)
	assert.NotEqual(t, ContentHash([]byte("one")), ContentHash([]byte("two")))
}

func TestBadgerCache(t *testing.T) {
	c, err := NewBadgerCache(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	defer c.Close()

	_, found, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set("k1", sample))
	require.NoError(t, c.Set("k2", nil))

	got, found, err := c.Get("k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sample, got)

	got, found, err = c.Get("k2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	require.NoError(t, c.Clear())
	_, found, _ = c.Get("k1")
	assert.False(t, found)
}

func TestBadgerCache_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()

	c, err := NewBadgerCache(BadgerOptions{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, c.Set("k", sample))
	require.NoError(t, c.Close())

	c, err = NewBadgerCache(BadgerOptions{Dir: dir})
	require.NoError(t, err)
	defer c.Close()

	got, found, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sample, got)
}

func BenchmarkLRUCache_Get(b *testing.B) {
	c := NewLRUCache(1000, time.Hour)
	for i := 0; i < 500; i++ {
		_ = c.Set(fmt.Sprintf("key-%d", i), sample)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(fmt.Sprintf("key-%d", i%500))
	}
}
