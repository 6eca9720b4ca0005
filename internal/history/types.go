// Package history provides SQLite-based storage for past validation runs.
// It is opt-in and never influences a run's result.
package history

import (
	"errors"
	"time"

	"github.com/JNZader/flightcheck/internal/engine"
)

// ErrNotFound is returned when no run matches an id.
var ErrNotFound = errors.New("run not found")

// RunRecord is one stored validation run.
type RunRecord struct {
	ID         string        `json:"id"`
	Domain     string        `json:"domain"`
	Version    string        `json:"version,omitempty"`
	Root       string        `json:"root,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Files      int           `json:"files"`
	Applicable int           `json:"applicable"`
	Skipped    bool          `json:"skipped"`
	Pass       int           `json:"pass"`
	Fail       int           `json:"fail"`
	Warn       int           `json:"warn"`
	ReadErrors int           `json:"read_errors"`
	ExitCode   int           `json:"exit_code"`
	Verdict    string        `json:"verdict"`

	// Rules is only filled by Get.
	Rules []RuleRecord `json:"rules,omitempty"`
}

// RuleRecord is the stored outcome of one rule in a run.
type RuleRecord struct {
	RuleID   string `json:"id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
	Findings int    `json:"findings"`
}

// NewRecord summarises an engine result for storage.
func NewRecord(result *engine.RunResult, root string, started time.Time, took time.Duration) *RunRecord {
	rec := &RunRecord{
		Domain:     result.Domain,
		Version:    result.Version,
		Root:       root,
		StartedAt:  started,
		Duration:   took,
		Files:      result.Files,
		Applicable: result.Applicable,
		Skipped:    result.Skipped,
		Pass:       result.Pass,
		Fail:       result.Fail,
		Warn:       result.Warn,
		ReadErrors: len(result.ReadErrors),
		ExitCode:   result.ExitCode(),
		Verdict:    result.Verdict(),
	}
	for _, o := range result.Outcomes {
		rec.Rules = append(rec.Rules, RuleRecord{
			RuleID:   o.RuleID,
			Title:    o.Title,
			Severity: o.Severity.String(),
			Status:   string(o.Status),
			Findings: len(o.Findings),
		})
	}
	return rec
}

// ListQuery filters stored runs.
type ListQuery struct {
	// Domain filters by domain name
	Domain string
	// Since filters by start time
	Since time.Time
	// Limit restricts result count (default 20)
	Limit int
	// Offset for pagination
	Offset int
}

// RuleStats aggregates one rule's outcomes over stored runs.
type RuleStats struct {
	RuleID     string    `json:"id"`
	Runs       int       `json:"runs"`
	Failures   int       `json:"failures"`
	Warnings   int       `json:"warnings"`
	LastFailed time.Time `json:"last_failed,omitempty"`
}
