// Package profiler writes CPU and heap profiles of long scans.
package profiler

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/dustin/go-humanize"
)

// Profiler handles profile collection
type Profiler struct {
	cpuFile   *os.File
	memFile   string
	startTime time.Time
}

// Config configures the profiler
type Config struct {
	CPUProfile string // File for CPU profile
	MemProfile string // File for heap profile, written on Stop
}

// Enabled reports whether any profile is requested.
func (c Config) Enabled() bool {
	return c.CPUProfile != "" || c.MemProfile != ""
}

// New creates a profiler and starts CPU profiling when requested.
func New(cfg Config) (*Profiler, error) {
	p := &Profiler{
		memFile:   cfg.MemProfile,
		startTime: time.Now(),
	}

	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to create CPU profile: %w", err)
		}
		p.cpuFile = f

		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	return p, nil
}

// Stop stops profiling and saves results. It is safe to call twice.
func (p *Profiler) Stop() error {
	var errs []error

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close CPU profile: %w", err))
		}
		p.cpuFile = nil
	}

	if p.memFile != "" {
		// Force GC for accurate stats
		runtime.GC()

		if err := writeHeapProfile(p.memFile); err != nil {
			errs = append(errs, err)
		}
		p.memFile = ""
	}

	return errors.Join(errs...)
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create memory profile: %w", err)
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("write memory profile: %w", err)
	}
	return nil
}

// Duration returns the time since profiler started
func (p *Profiler) Duration() time.Duration {
	return time.Since(p.startTime)
}

// Stats returns current memory statistics
func Stats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemStats{
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		HeapAlloc:  m.HeapAlloc,
		HeapInuse:  m.HeapInuse,
	}
}

// MemStats contains memory statistics
type MemStats struct {
	Alloc      uint64 // Currently allocated bytes
	TotalAlloc uint64 // Total bytes allocated (cumulative)
	Sys        uint64 // Memory obtained from OS
	NumGC      uint32 // Number of GC runs
	HeapAlloc  uint64 // Heap bytes allocated
	HeapInuse  uint64 // Heap in-use bytes
}

// String formats the statistics
func (m MemStats) String() string {
	return fmt.Sprintf(
		"Alloc: %s, HeapAlloc: %s, Sys: %s, NumGC: %d",
		humanize.IBytes(m.Alloc),
		humanize.IBytes(m.HeapAlloc),
		humanize.IBytes(m.Sys),
		m.NumGC,
	)
}
