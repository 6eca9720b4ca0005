package engine

import (
	"github.com/JNZader/flightcheck/internal/match"
	"github.com/JNZader/flightcheck/internal/rules"
)

// MaxExitCode caps the failure count used as process exit code. Codes above
// it are reserved for configuration and runtime errors.
const MaxExitCode = 119

// Status is the outcome of one rule.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusWarn Status = "warn"
)

// Outcome is the result of one evaluated rule.
type Outcome struct {
	RuleID   string         `json:"id"`
	Title    string         `json:"title"`
	Severity rules.Severity `json:"severity"`
	Kind     rules.Kind     `json:"kind"`
	Status   Status         `json:"status"`

	// Vacuous marks an endpoint-only rule that passed because no file was
	// applicable.
	Vacuous bool `json:"vacuous,omitempty"`

	Findings []match.Finding `json:"findings"`
}

// InfoResult is one informational stat of a run.
type InfoResult struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value int    `json:"value"`
}

// RunResult is the outcome of applying one rule set to one file set. It
// holds no timestamps, so equal inputs give equal results.
type RunResult struct {
	Domain  string `json:"domain"`
	Version string `json:"version,omitempty"`

	Files int `json:"files"`

	// Applicable counts files accepted by the domain classifier, or is -1
	// when the domain has none.
	Applicable int `json:"applicable"`

	// Skipped is set when no file matched; nothing was evaluated.
	Skipped bool `json:"skipped"`

	Pass int `json:"pass"`
	Fail int `json:"fail"`
	Warn int `json:"warn"`

	Outcomes   []Outcome        `json:"outcomes"`
	ReadErrors []*FileReadError `json:"read_errors,omitempty"`
	Info       []InfoResult     `json:"info,omitempty"`
}

// ExitCode returns the number of failed rules, clamped to MaxExitCode.
func (r *RunResult) ExitCode() int {
	if r.Fail > MaxExitCode {
		return MaxExitCode
	}
	return r.Fail
}

// Passed reports whether no hard rule failed.
func (r *RunResult) Passed() bool {
	return r.Fail == 0
}

// Verdict returns PASS, FAIL or SKIP.
func (r *RunResult) Verdict() string {
	switch {
	case r.Skipped:
		return "SKIP"
	case r.Fail > 0:
		return "FAIL"
	default:
		return "PASS"
	}
}

// Outcome returns the outcome of a rule by id.
func (r *RunResult) Outcome(id string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.RuleID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// BySeverity returns the outcomes of one severity, in declaration order.
func (r *RunResult) BySeverity(sev rules.Severity) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Severity == sev {
			out = append(out, o)
		}
	}
	return out
}

// FindingCount returns the total number of findings over all rules.
func (r *RunResult) FindingCount() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.Findings)
	}
	return n
}
