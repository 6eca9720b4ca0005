package match

import (
	"regexp"
	"strings"
)

// Paired requires Require to be present in any file where When is present.
// Files without When are vacuously fine; Require is only evaluated once When
// holds. The Finding is placed on the first line matching When.
type Paired struct {
	When     *regexp.Regexp
	Require  *regexp.Regexp
	Message  string
	Suppress string
}

// Match implements FileMatcher.
func (p *Paired) Match(src *Source) []Finding {
	loc := p.When.FindStringIndex(src.Text)
	if loc == nil {
		return nil
	}
	if p.Require.MatchString(src.Text) {
		return nil
	}

	n := src.LineAt(loc[0])
	line := src.Line(n)
	if suppressed(p.Suppress, line) {
		return nil
	}

	excerpt := Excerpt(line)
	if p.Message != "" {
		excerpt = Excerpt(p.Message + ": " + strings.TrimSpace(line))
	}
	return []Finding{{Path: src.Path, Line: n, Excerpt: excerpt}}
}
