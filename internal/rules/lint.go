package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JNZader/flightcheck/internal/match"
)

// IssueLevel grades a lint issue.
type IssueLevel string

const (
	IssueError   IssueLevel = "error"
	IssueWarning IssueLevel = "warning"
)

const dateLayout = "2006-01-02"

// Issue is one problem found in a catalog.
type Issue struct {
	Level   IssueLevel `json:"level"`
	RuleID  string     `json:"rule_id,omitempty"`
	Message string     `json:"message"`
}

func (i Issue) String() string {
	if i.RuleID == "" {
		return fmt.Sprintf("%s: %s", i.Level, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Level, i.RuleID, i.Message)
}

// LintReport collects the issues of one catalog file.
type LintReport struct {
	Source string  `json:"source"`
	Domain string  `json:"domain,omitempty"`
	Issues []Issue `json:"issues"`
}

// Errors returns the error-level issues.
func (r *LintReport) Errors() []Issue { return r.filter(IssueError) }

// Warnings returns the warning-level issues.
func (r *LintReport) Warnings() []Issue { return r.filter(IssueWarning) }

// OK reports whether the catalog has no errors. Warnings do not count.
func (r *LintReport) OK() bool { return len(r.Errors()) == 0 }

func (r *LintReport) filter(level IssueLevel) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Level == level {
			out = append(out, i)
		}
	}
	return out
}

func (r *LintReport) errorf(ruleID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Level: IssueError, RuleID: ruleID, Message: fmt.Sprintf(format, args...)})
}

func (r *LintReport) warnf(ruleID, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Level: IssueWarning, RuleID: ruleID, Message: fmt.Sprintf(format, args...)})
}

// Lint checks a catalog file without stopping at the first problem. Dates in
// provenance blocks are compared against now.
func Lint(data []byte, source string, now time.Time) *LintReport {
	report := &LintReport{Source: source}

	spec, err := ParseDomain(data, source)
	if err != nil {
		report.errorf("", "%v", errors.Unwrap(err))
		return report
	}
	report.Domain = spec.Domain

	if spec.Domain == "" {
		report.errorf("", "missing required field: domain")
	}
	if len(spec.Rules) == 0 {
		report.errorf("", "no rules defined")
	}

	token := spec.Suppression.Comment
	if token == "" {
		token = DefaultSuppressionToken
	}

	seen := make(map[string]bool, len(spec.Rules))
	for _, rs := range spec.Rules {
		if rs.ID == "" {
			report.errorf("", "rule at line %d has no id", rs.Line)
			continue
		}
		if seen[rs.ID] {
			report.errorf(rs.ID, "duplicate rule id")
		}
		seen[rs.ID] = true

		r, err := buildRule(rs, token)
		if err != nil {
			var rce *RuleConfigError
			if errors.As(err, &rce) {
				report.errorf(rs.ID, "%s: %v", rce.Field, rce.Err)
			} else {
				report.errorf(rs.ID, "%v", err)
			}
			continue
		}

		lintProvenance(report, rs, now)
		lintExamples(report, r, rs.Examples)
	}

	if spec.Provenance != nil && spec.Provenance.NextAuditDue != "" {
		if due, err := time.Parse(dateLayout, spec.Provenance.NextAuditDue); err != nil {
			report.warnf("", "provenance.next_audit_due: invalid date %q", spec.Provenance.NextAuditDue)
		} else if now.After(due) {
			report.warnf("", "domain audit overdue since %s", spec.Provenance.NextAuditDue)
		}
	}

	if _, err := spec.buildClassifier(); err != nil {
		var rce *RuleConfigError
		if errors.As(err, &rce) {
			report.errorf("", "%s: %v", rce.Field, rce.Err)
		} else {
			report.errorf("", "%v", err)
		}
	}

	for _, s := range spec.Info {
		if _, err := buildStat(s); err != nil {
			report.errorf("", "info %s: %v", s.ID, err)
		}
	}

	return report
}

func lintProvenance(report *LintReport, rs RuleSpec, now time.Time) {
	if !strings.EqualFold(rs.Severity, "GUIDANCE") && (rs.Provenance == nil || len(rs.Provenance.Sources) == 0) {
		report.warnf(rs.ID, "no provenance sources")
	}
	if rs.Provenance == nil {
		return
	}
	if strings.EqualFold(rs.Provenance.Confidence, "low") {
		report.warnf(rs.ID, "low confidence")
	}
	if rs.Provenance.ReVerifyAfter != "" {
		if after, err := time.Parse(dateLayout, rs.Provenance.ReVerifyAfter); err != nil {
			report.warnf(rs.ID, "provenance.re_verify_after: invalid date %q", rs.Provenance.ReVerifyAfter)
		} else if now.After(after) {
			report.warnf(rs.ID, "stale: re-verify was due %s", rs.Provenance.ReVerifyAfter)
		}
	}
}

// lintExamples runs the rule's file matcher over its own examples. Bad
// examples must be flagged and good ones must not.
func lintExamples(report *LintReport, r *Rule, ex *ExamplesSpec) {
	if ex == nil || r.FileMatcher() == nil {
		return
	}
	m := r.FileMatcher()
	for _, code := range ex.Bad {
		if len(m.Match(match.NewSource("example", []byte(code)))) == 0 {
			report.errorf(r.ID(), "bad example not flagged: %s", match.Excerpt(code))
		}
	}
	for _, code := range ex.Good {
		if len(m.Match(match.NewSource("example", []byte(code)))) > 0 {
			report.errorf(r.ID(), "good example flagged: %s", match.Excerpt(code))
		}
	}
}
