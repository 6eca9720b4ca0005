package rules

import (
	"path/filepath"
	"strings"
)

// Export is the tool-neutral JSON form of a domain, consumed by editors and
// other linters.
type Export struct {
	Domain       string       `json:"domain"`
	Version      string       `json:"version"`
	Language     string       `json:"language,omitempty"`
	FilePatterns []string     `json:"file_patterns"`
	Rules        []ExportRule `json:"rules"`
}

// ExportRule is one rule of an Export.
type ExportRule struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Severity   string `json:"severity"`
	Mechanical bool   `json:"mechanical"`
	Type       string `json:"type,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
	Query      string `json:"query,omitempty"`
	Message    string `json:"message,omitempty"`
}

var extensionLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".rs":   "rust",
	".sh":   "bash",
	".bash": "bash",
	".c":    "c",
	".h":    "c",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".sql":  "sql",
	".rb":   "ruby",
}

// InferLanguage guesses the language of a domain from its file patterns. It
// returns "" when the patterns disagree or carry no known extension.
func InferLanguage(patterns []string) string {
	lang := ""
	for _, p := range patterns {
		l, ok := extensionLanguages[strings.ToLower(filepath.Ext(p))]
		if !ok {
			continue
		}
		if lang != "" && lang != l {
			return ""
		}
		lang = l
	}
	return lang
}

// ExportDomain builds the export form of a parsed catalog.
func ExportDomain(spec *DomainSpec) *Export {
	out := &Export{
		Domain:       spec.Domain,
		Version:      spec.Version,
		Language:     InferLanguage(spec.FilePatterns),
		FilePatterns: append([]string{}, spec.FilePatterns...),
		Rules:        make([]ExportRule, 0, len(spec.Rules)),
	}
	for _, rs := range spec.Rules {
		er := ExportRule{
			ID:         rs.ID,
			Title:      rs.Title,
			Severity:   strings.ToUpper(rs.Severity),
			Mechanical: rs.Check != nil,
		}
		if rs.Mechanical != nil {
			er.Mechanical = *rs.Mechanical && rs.Check != nil
		}
		if c := rs.Check; c != nil {
			er.Type = c.Type
			er.Query = c.Query
			er.Message = c.Message
			switch {
			case c.Pattern != "":
				er.Pattern = c.Pattern
			case c.When != "":
				er.Pattern = c.When
			case c.FunctionStart != "":
				er.Pattern = c.FunctionStart
			}
		}
		out.Rules = append(out.Rules, er)
	}
	return out
}
