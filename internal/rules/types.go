package rules

import (
	"fmt"

	"github.com/JNZader/flightcheck/internal/match"
	"github.com/JNZader/flightcheck/internal/resolve"
)

// Kind names the matcher shape of a rule.
type Kind string

const (
	KindPresence       Kind = "grep"
	KindAbsence        Kind = "absence"
	KindPaired         Kind = "paired"
	KindDensity        Kind = "density"
	KindMultiCondition Kind = "multi-condition"
	KindFileExists     Kind = "file_exists"
)

// RuleDef is the input to NewRule.
type RuleDef struct {
	ID          string
	Title       string
	Description string
	Severity    Severity

	// Manual marks a rule that is described but not mechanically checked.
	Manual bool

	// ApplicableOnly restricts the rule to files accepted by the domain's
	// classifier.
	ApplicableOnly bool

	Kind Kind
	File match.FileMatcher
	Set  match.SetMatcher
}

// Rule is one named check. It is immutable once constructed.
type Rule struct {
	def RuleDef
}

// NewRule validates def and returns the rule. A rule that will be evaluated
// needs exactly one of File or Set.
func NewRule(def RuleDef) (*Rule, error) {
	if def.ID == "" {
		return nil, &RuleConfigError{Field: "id", Err: ErrMissingField}
	}
	if _, ok := severityNames[def.Severity]; !ok {
		return nil, &RuleConfigError{RuleID: def.ID, Field: "severity", Err: fmt.Errorf("invalid severity %d", int(def.Severity))}
	}

	r := &Rule{def: def}
	if !r.Evaluated() {
		r.def.File, r.def.Set = nil, nil
		return r, nil
	}
	if (def.File == nil) == (def.Set == nil) {
		return nil, &RuleConfigError{RuleID: def.ID, Field: "check", Err: fmt.Errorf("exactly one matcher required")}
	}
	return r, nil
}

func (r *Rule) ID() string                     { return r.def.ID }
func (r *Rule) Title() string                  { return r.def.Title }
func (r *Rule) Description() string            { return r.def.Description }
func (r *Rule) Severity() Severity             { return r.def.Severity }
func (r *Rule) Kind() Kind                     { return r.def.Kind }
func (r *Rule) Mechanical() bool               { return !r.def.Manual }
func (r *Rule) ApplicableOnly() bool           { return r.def.ApplicableOnly }
func (r *Rule) FileMatcher() match.FileMatcher { return r.def.File }
func (r *Rule) SetMatcher() match.SetMatcher   { return r.def.Set }

// Evaluated reports whether the runner invokes this rule. Guidance rules and
// manual rules never take part in pass/fail counting.
func (r *Rule) Evaluated() bool {
	return r.def.Severity.Checked() && !r.def.Manual
}

// SetDef is the input to NewRuleSet.
type SetDef struct {
	Name        string
	Version     string
	Description string
	Source      string

	Rules           []*Rule
	FilePatterns    []string
	ExcludePatterns []string
	Classifier      *resolve.Classifier
	Suppression     string
	Info            []*match.Stat
	Fingerprint     string
}

// RuleSet is a named, ordered collection of rules. Rule ids are unique
// within a set; different sets may reuse ids.
type RuleSet struct {
	def   SetDef
	index map[string]int
}

// NewRuleSet validates def and returns the set.
func NewRuleSet(def SetDef) (*RuleSet, error) {
	if def.Name == "" {
		return nil, &RuleConfigError{Field: "domain", Err: ErrMissingField}
	}

	index := make(map[string]int, len(def.Rules))
	for i, r := range def.Rules {
		if _, dup := index[r.ID()]; dup {
			return nil, &RuleConfigError{Domain: def.Name, RuleID: r.ID(), Field: "id", Err: ErrDuplicateRule}
		}
		index[r.ID()] = i
	}

	def.Rules = append([]*Rule(nil), def.Rules...)
	def.FilePatterns = append([]string(nil), def.FilePatterns...)
	def.ExcludePatterns = append([]string(nil), def.ExcludePatterns...)
	def.Info = append([]*match.Stat(nil), def.Info...)
	return &RuleSet{def: def, index: index}, nil
}

func (s *RuleSet) Name() string                    { return s.def.Name }
func (s *RuleSet) Version() string                 { return s.def.Version }
func (s *RuleSet) Description() string             { return s.def.Description }
func (s *RuleSet) Source() string                  { return s.def.Source }
func (s *RuleSet) Classifier() *resolve.Classifier { return s.def.Classifier }
func (s *RuleSet) SuppressionToken() string        { return s.def.Suppression }
func (s *RuleSet) Fingerprint() string             { return s.def.Fingerprint }
func (s *RuleSet) Len() int                        { return len(s.def.Rules) }

// Rules returns all rules in declaration order.
func (s *RuleSet) Rules() []*Rule {
	return append([]*Rule(nil), s.def.Rules...)
}

// Rule looks up a rule by id.
func (s *RuleSet) Rule(id string) (*Rule, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.def.Rules[i], true
}

// Evaluated returns the rules the runner invokes, in declaration order.
func (s *RuleSet) Evaluated() []*Rule {
	var out []*Rule
	for _, r := range s.def.Rules {
		if r.Evaluated() {
			out = append(out, r)
		}
	}
	return out
}

// FilePatterns returns the default globs used when no files are given.
func (s *RuleSet) FilePatterns() []string {
	return append([]string(nil), s.def.FilePatterns...)
}

// ExcludePatterns returns globs of files never validated.
func (s *RuleSet) ExcludePatterns() []string {
	return append([]string(nil), s.def.ExcludePatterns...)
}

// Info returns the informational stats of the domain.
func (s *RuleSet) Info() []*match.Stat {
	return append([]*match.Stat(nil), s.def.Info...)
}

// CountBySeverity returns how many rules the set holds per severity.
func (s *RuleSet) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, r := range s.def.Rules {
		counts[r.Severity()]++
	}
	return counts
}
