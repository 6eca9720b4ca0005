package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/JNZader/flightcheck/internal/match"
	"github.com/JNZader/flightcheck/internal/resolve"
)

// DefaultSuppressionToken is used when a domain does not configure one.
const DefaultSuppressionToken = "flight:ok"

// Build compiles the spec into an immutable RuleSet. Every pattern is
// compiled here, so a broken rule surfaces before any file is read.
func (d *DomainSpec) Build() (*RuleSet, error) {
	if d.Domain == "" {
		return nil, &RuleConfigError{Field: "domain", Err: ErrMissingField}
	}

	for _, field := range []struct {
		name     string
		patterns []string
	}{
		{"file_patterns", d.FilePatterns},
		{"exclude_patterns", d.ExcludePatterns},
	} {
		for _, p := range field.patterns {
			if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
				return nil, &RuleConfigError{Domain: d.Domain, Field: field.name, Err: fmt.Errorf("%w: %q", resolve.ErrBadPattern, p)}
			}
		}
	}

	token := d.Suppression.Comment
	if token == "" {
		token = DefaultSuppressionToken
	}

	rules := make([]*Rule, 0, len(d.Rules))
	for _, spec := range d.Rules {
		r, err := buildRule(spec, token)
		if err != nil {
			var rce *RuleConfigError
			if errors.As(err, &rce) && rce.Domain == "" {
				rce.Domain = d.Domain
			}
			return nil, err
		}
		rules = append(rules, r)
	}

	classifier, err := d.buildClassifier()
	if err != nil {
		return nil, err
	}

	info := make([]*match.Stat, 0, len(d.Info))
	for _, s := range d.Info {
		stat, err := buildStat(s)
		if err != nil {
			return nil, &RuleConfigError{Domain: d.Domain, RuleID: s.ID, Field: "info", Err: err}
		}
		info = append(info, stat)
	}

	sum := sha256.Sum256(d.Raw)
	return NewRuleSet(SetDef{
		Name:            d.Domain,
		Version:         d.Version,
		Description:     strings.TrimSpace(d.Description),
		Source:          d.Source,
		Rules:           rules,
		FilePatterns:    d.FilePatterns,
		ExcludePatterns: d.ExcludePatterns,
		Classifier:      classifier,
		Suppression:     token,
		Info:            info,
		Fingerprint:     hex.EncodeToString(sum[:]),
	})
}

func (d *DomainSpec) buildClassifier() (*resolve.Classifier, error) {
	if d.Detection == nil || (len(d.Detection.Paths) == 0 && len(d.Detection.Patterns) == 0) {
		return nil, nil
	}
	contents := make([]*regexp.Regexp, 0, len(d.Detection.Patterns))
	for _, p := range d.Detection.Patterns {
		re, err := compilePattern(p, "")
		if err != nil {
			return nil, &RuleConfigError{Domain: d.Domain, Field: "api_file_detection.patterns", Err: err}
		}
		contents = append(contents, re)
	}
	c, err := resolve.NewClassifier(d.Detection.Paths, contents)
	if err != nil {
		return nil, &RuleConfigError{Domain: d.Domain, Field: "api_file_detection.paths", Err: err}
	}
	return c, nil
}

func buildRule(spec RuleSpec, token string) (*Rule, error) {
	if spec.Title == "" {
		return nil, &RuleConfigError{RuleID: spec.ID, Field: "title", Err: ErrMissingField}
	}
	if spec.Severity == "" {
		return nil, &RuleConfigError{RuleID: spec.ID, Field: "severity", Err: ErrMissingField}
	}
	sev, err := ParseSeverity(spec.Severity)
	if err != nil {
		return nil, &RuleConfigError{RuleID: spec.ID, Field: "severity", Err: err}
	}

	mechanical := spec.Check != nil
	if spec.Mechanical != nil {
		mechanical = *spec.Mechanical
	}
	if mechanical && spec.Check == nil {
		return nil, &RuleConfigError{RuleID: spec.ID, Field: "check", Err: fmt.Errorf("%w: mechanical rule needs a check", ErrMissingField)}
	}

	def := RuleDef{
		ID:             spec.ID,
		Title:          spec.Title,
		Description:    strings.TrimSpace(spec.Description),
		Severity:       sev,
		Manual:         !mechanical,
		ApplicableOnly: spec.APIFilesOnly,
	}

	// Checks of rules that are never evaluated are still compiled so that a
	// broken pattern is reported rather than hidden.
	if spec.Check != nil {
		c, err := compileCheck(spec.Check, token)
		if err != nil {
			var rce *RuleConfigError
			if errors.As(err, &rce) {
				rce.RuleID = spec.ID
				return nil, rce
			}
			return nil, &RuleConfigError{RuleID: spec.ID, Field: "check", Err: err}
		}
		def.Kind, def.File, def.Set = c.kind, c.file, c.set
	}

	return NewRule(def)
}

type compiled struct {
	kind Kind
	file match.FileMatcher
	set  match.SetMatcher
}

func compileCheck(c *CheckSpec, token string) (compiled, error) {
	typ := strings.ToLower(c.Type)
	switch typ {
	case "grep", "regex", "presence-line":
		pattern, err := requirePattern("pattern", c.Pattern, c.Flags)
		if err != nil {
			return compiled{}, err
		}
		exclude, err := optionalPattern("exclude", c.Exclude, c.Flags)
		if err != nil {
			return compiled{}, err
		}
		return compiled{kind: KindPresence, file: &match.Presence{
			Pattern:   pattern,
			Exclude:   exclude,
			Multiline: c.Multiline,
			Suppress:  token,
		}}, nil

	case "absence", "presence":
		pattern, err := requirePattern("pattern", c.Pattern, c.Flags)
		if err != nil {
			return compiled{}, err
		}
		// A required pattern is satisfied by any file of the set; a banned
		// pattern's absence is checked file by file.
		scope := c.Scope
		if scope == "" {
			scope = "file"
			if typ == "presence" {
				scope = "set"
			}
		}
		switch scope {
		case "file":
			return compiled{kind: KindAbsence, file: &match.Absence{Pattern: pattern, Message: c.Message}}, nil
		case "set", "all":
			return compiled{kind: KindAbsence, set: &match.SetAbsence{Pattern: pattern, Message: c.Message}}, nil
		default:
			return compiled{}, checkError("scope", fmt.Errorf("invalid scope %q (want file or set)", c.Scope))
		}

	case "paired":
		when, err := requirePattern("when", c.When, c.Flags)
		if err != nil {
			return compiled{}, err
		}
		require, err := requirePattern("require", c.Require, c.Flags)
		if err != nil {
			return compiled{}, err
		}
		return compiled{kind: KindPaired, file: &match.Paired{
			When: when, Require: require, Message: c.Message, Suppress: token,
		}}, nil

	case "density":
		return compileDensity(c, token)

	case "multi-condition":
		return compileMulti(c, token)

	case "file_exists":
		if len(c.Paths) == 0 {
			return compiled{}, checkError("paths", ErrMissingField)
		}
		for _, p := range c.Paths {
			if !doublestar.ValidatePattern(p) {
				return compiled{}, checkError("paths", fmt.Errorf("%w: %q", resolve.ErrBadPattern, p))
			}
		}
		return compiled{kind: KindFileExists, set: &match.FileExists{Paths: c.Paths, Message: c.Message}}, nil

	case "script", "ast":
		return compiled{}, checkError("type", fmt.Errorf("%w: %q checks are not supported", ErrUnknownCheck, c.Type))

	case "":
		return compiled{}, checkError("type", ErrMissingField)

	default:
		return compiled{}, checkError("type", fmt.Errorf("%w: %q", ErrUnknownCheck, c.Type))
	}
}

func compileDensity(c *CheckSpec, token string) (compiled, error) {
	start, err := requirePattern("function_start", c.FunctionStart, c.Flags)
	if err != nil {
		return compiled{}, err
	}

	d := &match.Density{Start: start, Unit: c.Unit, MaxLines: c.MaxLines, Max: -1, Suppress: token}

	switch c.Boundary {
	case "", "regex":
		end := c.FunctionEnd
		if end == "" {
			end = "^}"
		}
		if d.End, err = requirePattern("function_end", end, c.Flags); err != nil {
			return compiled{}, err
		}
	case "braces":
		d.Braces = true
	default:
		return compiled{}, checkError("boundary", fmt.Errorf("invalid boundary %q (want regex or braces)", c.Boundary))
	}

	if d.Count, err = optionalPattern("count", c.Count, c.Flags); err != nil {
		return compiled{}, err
	}
	if d.Count != nil {
		d.Min = 1
		if c.Min != nil || c.Max != nil {
			d.Min = 0
		}
		if c.Min != nil {
			d.Min = *c.Min
		}
		if c.Max != nil {
			d.Max = *c.Max
		}
	}
	if d.Count == nil && d.MaxLines <= 0 {
		return compiled{}, checkError("count", fmt.Errorf("%w: density check needs count or max_lines", ErrMissingField))
	}
	return compiled{kind: KindDensity, file: d}, nil
}

func compileMulti(c *CheckSpec, token string) (compiled, error) {
	if len(c.Conditions) == 0 {
		return compiled{}, checkError("conditions", ErrMissingField)
	}
	m := &match.MultiCondition{Message: c.Message, Suppress: token}
	switch strings.ToUpper(c.Logic) {
	case "", "AND":
		m.Logic = match.LogicAnd
	case "OR":
		m.Logic = match.LogicOr
	default:
		return compiled{}, checkError("logic", fmt.Errorf("invalid logic %q (want AND or OR)", c.Logic))
	}
	for i, cond := range c.Conditions {
		flags := cond.Flags
		if flags == "" {
			flags = c.Flags
		}
		if flags == "" {
			flags = "i"
		}
		re, err := requirePattern(fmt.Sprintf("conditions[%d]", i), cond.Pattern, flags)
		if err != nil {
			return compiled{}, err
		}
		m.Conditions = append(m.Conditions, re)
	}
	return compiled{kind: KindMultiCondition, file: m}, nil
}

func buildStat(s InfoSpec) (*match.Stat, error) {
	if s.Pattern == "" {
		return nil, fmt.Errorf("pattern: %w", ErrMissingField)
	}
	re, err := compilePattern(s.Pattern, s.Flags)
	if err != nil {
		return nil, err
	}
	agg, err := match.ParseAggregate(s.Aggregate)
	if err != nil {
		return nil, err
	}
	label := s.Label
	if label == "" {
		label = s.ID
	}
	return &match.Stat{ID: s.ID, Label: label, Pattern: re, Aggregate: agg}, nil
}

func checkError(field string, err error) error {
	return &RuleConfigError{Field: "check." + field, Err: err}
}

func requirePattern(field, pattern, flags string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, checkError(field, ErrMissingField)
	}
	re, err := compilePattern(pattern, flags)
	if err != nil {
		return nil, checkError(field, err)
	}
	return re, nil
}

func optionalPattern(field, pattern, flags string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return requirePattern(field, pattern, flags)
}

// compilePattern compiles a catalog regex in multi-line mode, so that ^ and $
// anchor at line boundaries when matched against whole files. Flags follow
// grep conventions ("-i", "-iE", "-wF"): i ignores case, s lets dot match
// newlines, F matches the pattern literally, w matches whole words and x whole
// lines. E names the default syntax and changes nothing. Any other letter is
// rejected with ErrUnsupportedFlag.
func compilePattern(pattern, flags string) (*regexp.Regexp, error) {
	var fold, dotAll, literal, word, line bool
	for _, f := range flags {
		switch f {
		case '-', ' ', 'E':
		case 'i':
			fold = true
		case 's':
			dotAll = true
		case 'F':
			literal = true
		case 'w':
			word = true
		case 'x':
			line = true
		default:
			return nil, fmt.Errorf("%w: %q in %q", ErrUnsupportedFlag, f, flags)
		}
	}
	mode := "m"
	if fold {
		mode += "i"
	}
	if dotAll {
		mode += "s"
	}
	if literal {
		pattern = regexp.QuoteMeta(pattern)
	}
	switch {
	case line:
		pattern = `^(?:` + pattern + `)$`
	case word:
		pattern = `\b(?:` + pattern + `)\b`
	}
	return regexp.Compile("(?" + mode + ")" + pattern)
}
