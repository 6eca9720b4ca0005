package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DomainSpec is the parsed but not yet compiled form of one domain catalog
// file. Rules keep the order in which they are declared in the file.
type DomainSpec struct {
	Domain          string           `yaml:"domain"`
	Version         string           `yaml:"version"`
	Description     string           `yaml:"description"`
	SchemaVersion   int              `yaml:"schema_version"`
	FilePatterns    []string         `yaml:"file_patterns"`
	ExcludePatterns []string         `yaml:"exclude_patterns"`
	Detection       *DetectionSpec   `yaml:"api_file_detection"`
	Suppression     SuppressionSpec  `yaml:"suppression"`
	Provenance      *AuditProvenance `yaml:"provenance"`

	Rules []RuleSpec `yaml:"-"`
	Info  []InfoSpec `yaml:"-"`

	// Source names where the catalog was read from; Raw holds its bytes.
	Source string `yaml:"-"`
	Raw    []byte `yaml:"-"`
}

// DetectionSpec configures the classifier for endpoint-only rules.
type DetectionSpec struct {
	Paths    []string `yaml:"paths"`
	Patterns []string `yaml:"patterns"`
}

// SuppressionSpec configures the inline suppression token.
type SuppressionSpec struct {
	Comment       string `yaml:"comment"`
	Documentation string `yaml:"documentation"`
}

// AuditProvenance records when a domain was last audited as a whole.
type AuditProvenance struct {
	LastFullAudit string `yaml:"last_full_audit"`
	AuditedBy     string `yaml:"audited_by"`
	NextAuditDue  string `yaml:"next_audit_due"`
}

// RuleSpec is one rule as written in a catalog.
type RuleSpec struct {
	ID           string          `yaml:"id"`
	Title        string          `yaml:"title"`
	Severity     string          `yaml:"severity"`
	Mechanical   *bool           `yaml:"mechanical"`
	Description  string          `yaml:"description"`
	Note         string          `yaml:"note"`
	APIFilesOnly bool            `yaml:"api_files_only"`
	Check        *CheckSpec      `yaml:"check"`
	Examples     *ExamplesSpec   `yaml:"examples"`
	Provenance   *RuleProvenance `yaml:"provenance"`

	// Line is the catalog line the rule starts on.
	Line int `yaml:"-"`
}

// CheckSpec is the declarative matcher of a rule. Which fields apply
// depends on Type.
type CheckSpec struct {
	Type      string `yaml:"type"`
	Pattern   string `yaml:"pattern"`
	Flags     string `yaml:"flags"`
	Exclude   string `yaml:"exclude"`
	Multiline bool   `yaml:"multiline"`
	Message   string `yaml:"message"`
	Scope     string `yaml:"scope"`

	When    string `yaml:"when"`
	Require string `yaml:"require"`

	FunctionStart string `yaml:"function_start"`
	FunctionEnd   string `yaml:"function_end"`
	Boundary      string `yaml:"boundary"`
	Count         string `yaml:"count"`
	Unit          string `yaml:"unit"`
	Min           *int   `yaml:"min"`
	Max           *int   `yaml:"max"`
	MaxLines      int    `yaml:"max_lines"`

	Conditions []ConditionSpec `yaml:"conditions"`
	Logic      string          `yaml:"logic"`

	Paths []string `yaml:"paths"`

	// Query and Code belong to check types this engine does not run; they
	// are kept so that exports and lint messages can show them.
	Query string `yaml:"query"`
	Code  string `yaml:"code"`
}

// ConditionSpec is one pattern of a multi-condition check.
type ConditionSpec struct {
	Pattern string `yaml:"pattern"`
	Flags   string `yaml:"flags"`
}

// ExamplesSpec lists code that a rule should and should not flag.
type ExamplesSpec struct {
	Bad  []string `yaml:"bad"`
	Good []string `yaml:"good"`
}

// RuleProvenance records where a rule comes from and how fresh it is.
type RuleProvenance struct {
	LastVerified  string      `yaml:"last_verified"`
	Confidence    string      `yaml:"confidence"`
	ReVerifyAfter string      `yaml:"re_verify_after"`
	Sources       []SourceRef `yaml:"sources"`
}

// SourceRef is a reference backing a rule, written either as a bare URL or
// as a mapping with url and title.
type SourceRef struct {
	URL   string `yaml:"url"`
	Title string `yaml:"title"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (s *SourceRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.URL = node.Value
		return nil
	}
	type plain SourceRef
	return node.Decode((*plain)(s))
}

// InfoSpec is an informational stat of a domain.
type InfoSpec struct {
	ID        string `yaml:"id"`
	Pattern   string `yaml:"pattern"`
	Flags     string `yaml:"flags"`
	Label     string `yaml:"label"`
	Aggregate string `yaml:"aggregate"`
}

type rawDomain struct {
	DomainSpec `yaml:",inline"`

	Rules yaml.Node `yaml:"rules"`
	Info  yaml.Node `yaml:"info"`
}

// ParseDomain decodes a catalog file. It checks YAML structure only; use
// Build to compile the rules.
func ParseDomain(data []byte, source string) (*DomainSpec, error) {
	var raw rawDomain
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &RuleConfigError{Field: source, Err: err}
	}

	spec := raw.DomainSpec
	spec.Source = source
	spec.Raw = append([]byte(nil), data...)

	var err error
	if spec.Rules, err = decodeRules(&raw.Rules); err != nil {
		return nil, &RuleConfigError{Domain: spec.Domain, Field: "rules", Err: err}
	}
	if spec.Info, err = decodeInfo(&raw.Info); err != nil {
		return nil, &RuleConfigError{Domain: spec.Domain, Field: "info", Err: err}
	}
	return &spec, nil
}

// decodeRules accepts rules either as a mapping keyed by id or as a list of
// entries carrying an id field.
func decodeRules(node *yaml.Node) ([]RuleSpec, error) {
	switch {
	case isEmptyNode(node):
		return nil, nil
	case node.Kind == yaml.MappingNode:
		rules := make([]RuleSpec, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			var r RuleSpec
			if err := val.Decode(&r); err != nil {
				return nil, fmt.Errorf("rule %s: %w", key.Value, err)
			}
			r.ID = key.Value
			r.Line = key.Line
			rules = append(rules, r)
		}
		return rules, nil
	case node.Kind == yaml.SequenceNode:
		rules := make([]RuleSpec, 0, len(node.Content))
		for _, item := range node.Content {
			var r RuleSpec
			if err := item.Decode(&r); err != nil {
				return nil, fmt.Errorf("line %d: %w", item.Line, err)
			}
			r.Line = item.Line
			rules = append(rules, r)
		}
		return rules, nil
	default:
		return nil, fmt.Errorf("line %d: expected a mapping or a list", node.Line)
	}
}

func decodeInfo(node *yaml.Node) ([]InfoSpec, error) {
	switch {
	case isEmptyNode(node):
		return nil, nil
	case node.Kind == yaml.MappingNode:
		stats := make([]InfoSpec, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var s InfoSpec
			if err := node.Content[i+1].Decode(&s); err != nil {
				return nil, fmt.Errorf("info %s: %w", node.Content[i].Value, err)
			}
			s.ID = node.Content[i].Value
			stats = append(stats, s)
		}
		return stats, nil
	case node.Kind == yaml.SequenceNode:
		var stats []InfoSpec
		if err := node.Decode(&stats); err != nil {
			return nil, err
		}
		return stats, nil
	default:
		return nil, fmt.Errorf("line %d: expected a mapping or a list", node.Line)
	}
}

func isEmptyNode(node *yaml.Node) bool {
	return node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}
