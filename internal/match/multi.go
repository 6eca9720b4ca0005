package match

import "regexp"

// Logic combines the conditions of a MultiCondition.
type Logic int

const (
	// LogicAnd requires every condition to match the file.
	LogicAnd Logic = iota
	// LogicOr requires at least one condition to match the file.
	LogicOr
)

// MultiCondition flags a file when its conditions hold under Logic.
// The Finding is placed on the first match of the first matching condition.
type MultiCondition struct {
	Conditions []*regexp.Regexp
	Logic      Logic
	Message    string
	Suppress   string
}

// Match implements FileMatcher.
func (m *MultiCondition) Match(src *Source) []Finding {
	first := -1
	matched := 0
	for _, cond := range m.Conditions {
		loc := cond.FindStringIndex(src.Text)
		if loc == nil {
			if m.Logic == LogicAnd {
				return nil
			}
			continue
		}
		matched++
		if first < 0 {
			first = loc[0]
		}
	}
	if matched == 0 {
		return nil
	}

	n := src.LineAt(first)
	line := src.Line(n)
	if suppressed(m.Suppress, line) {
		return nil
	}
	excerpt := line
	if m.Message != "" {
		excerpt = m.Message
	}
	return []Finding{{Path: src.Path, Line: n, Excerpt: Excerpt(excerpt)}}
}
