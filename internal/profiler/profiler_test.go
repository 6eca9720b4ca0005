package profiler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CPUProfile(t *testing.T) {
	cpuFile := filepath.Join(t.TempDir(), "cpu.prof")

	p, err := New(Config{CPUProfile: cpuFile})
	require.NoError(t, err)

	sum := 0
	for i := 0; i < 100000; i++ {
		sum += i
	}
	_ = sum

	require.NoError(t, p.Stop())
	assert.NoError(t, p.Stop(), "second stop is a no-op")

	_, err = os.Stat(cpuFile)
	assert.NoError(t, err, "CPU profile file was created")
}

func TestNew_MemProfile(t *testing.T) {
	memFile := filepath.Join(t.TempDir(), "mem.prof")

	p, err := New(Config{MemProfile: memFile})
	require.NoError(t, err)

	data := make([]byte, 1024*1024)
	_ = data

	require.NoError(t, p.Stop())

	info, err := os.Stat(memFile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestNew_InvalidPaths(t *testing.T) {
	_, err := New(Config{CPUProfile: "/nonexistent/path/cpu.prof"})
	assert.Error(t, err)

	p, err := New(Config{MemProfile: "/nonexistent/path/mem.prof"})
	require.NoError(t, err)
	assert.ErrorContains(t, p.Stop(), "create memory profile")
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{MemProfile: "m"}.Enabled())
}

func TestStats(t *testing.T) {
	stats := Stats()
	assert.NotZero(t, stats.Alloc)
	assert.NotZero(t, stats.Sys)
	assert.NotZero(t, stats.HeapAlloc)
}

func TestMemStats_String(t *testing.T) {
	stats := MemStats{
		Alloc:     1024 * 1024,
		HeapAlloc: 512 * 1024,
		Sys:       10 * 1024 * 1024,
		NumGC:     5,
	}
	assert.Equal(t, "Alloc: 1.0 MiB, HeapAlloc: 512 KiB, Sys: 10 MiB, NumGC: 5", stats.String())
}

func TestProfiler_Duration(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	defer p.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, p.Duration(), 10*time.Millisecond)
}
