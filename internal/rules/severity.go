package rules

import (
	"fmt"
	"strings"
)

// Severity indicates how a violated rule affects the run.
type Severity int

const (
	// SeverityNever marks a forbidden pattern; a violation fails the run.
	SeverityNever Severity = iota + 1
	// SeverityMust marks a mandatory pattern; a violation fails the run.
	SeverityMust
	// SeverityShould marks a recommendation; a violation is a warning.
	SeverityShould
	// SeverityGuidance is documentation only and never evaluated.
	SeverityGuidance
)

var severityNames = map[Severity]string{
	SeverityNever:    "NEVER",
	SeverityMust:     "MUST",
	SeverityShould:   "SHOULD",
	SeverityGuidance: "GUIDANCE",
}

// Severities lists all severities in report order.
func Severities() []Severity {
	return []Severity{SeverityNever, SeverityMust, SeverityShould, SeverityGuidance}
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for sev, n := range severityNames {
		if n == name {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("invalid severity %q (want NEVER, MUST, SHOULD or GUIDANCE)", s)
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Hard reports whether a violation fails the run.
func (s Severity) Hard() bool {
	return s == SeverityNever || s == SeverityMust
}

// Checked reports whether rules of this severity are evaluated at all.
func (s Severity) Checked() bool {
	return s == SeverityNever || s == SeverityMust || s == SeverityShould
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	sev, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}
