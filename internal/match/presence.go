package match

import "regexp"

// Presence reports every line matching Pattern.
//
// A line is skipped when it also matches Exclude or carries the suppression
// token. With Multiline set the pattern runs over the whole file and each
// match is attributed to the line it starts on; a line is reported once.
type Presence struct {
	Pattern   *regexp.Regexp
	Exclude   *regexp.Regexp
	Multiline bool
	Suppress  string
}

// Match implements FileMatcher.
func (p *Presence) Match(src *Source) []Finding {
	if p.Multiline {
		return p.matchText(src)
	}

	var findings []Finding
	for i, line := range src.Lines {
		if !p.Pattern.MatchString(line) {
			continue
		}
		if p.skip(line) {
			continue
		}
		findings = append(findings, Finding{Path: src.Path, Line: i + 1, Excerpt: Excerpt(line)})
	}
	return findings
}

func (p *Presence) matchText(src *Source) []Finding {
	var findings []Finding
	last := 0
	for _, loc := range p.Pattern.FindAllStringIndex(src.Text, -1) {
		n := src.LineAt(loc[0])
		if n == last {
			continue
		}
		line := src.Line(n)
		if p.skip(line) {
			continue
		}
		last = n
		findings = append(findings, Finding{Path: src.Path, Line: n, Excerpt: Excerpt(line)})
	}
	return findings
}

func (p *Presence) skip(line string) bool {
	if p.Exclude != nil && p.Exclude.MatchString(line) {
		return true
	}
	return suppressed(p.Suppress, line)
}
