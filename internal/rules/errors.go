package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateRule is wrapped when a rule id repeats within one domain.
	ErrDuplicateRule = errors.New("duplicate rule id")

	// ErrUnknownCheck is wrapped for an unsupported check type.
	ErrUnknownCheck = errors.New("unknown check type")

	// ErrMissingField is wrapped when a required catalog field is empty.
	ErrMissingField = errors.New("required field missing")

	// ErrUnsupportedFlag is wrapped for a pattern flag that cannot be honored.
	ErrUnsupportedFlag = errors.New("unsupported pattern flag")
)

// RuleConfigError reports a broken rule definition. It is always fatal:
// a rule that cannot be compiled is never skipped.
type RuleConfigError struct {
	Domain string
	RuleID string
	Field  string
	Err    error
}

func (e *RuleConfigError) Error() string {
	var sb strings.Builder
	sb.WriteString("rule config")
	if e.Domain != "" {
		fmt.Fprintf(&sb, ": domain %q", e.Domain)
	}
	if e.RuleID != "" {
		fmt.Fprintf(&sb, ": rule %s", e.RuleID)
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, ": %s", e.Field)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	return sb.String()
}

func (e *RuleConfigError) Unwrap() error { return e.Err }

// UnknownDomainError is returned when a domain is not in the catalog.
type UnknownDomainError struct {
	Name  string
	Known []string
}

func (e *UnknownDomainError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown domain %q (catalog is empty)", e.Name)
	}
	return fmt.Sprintf("unknown domain %q (available: %s)", e.Name, strings.Join(e.Known, ", "))
}
