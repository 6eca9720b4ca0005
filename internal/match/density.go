package match

import (
	"fmt"
	"regexp"
	"strings"
)

// Density checks metrics of each function in a file.
//
// Function boundaries are line based: a function starts on a line matching
// Start and ends on the next line matching End. A new Start before End
// abandons the open function, and a function still open at end of file is
// not checked. With Braces set, End is ignored and the function ends where
// its braces balance.
//
// Each violating function yields one Finding on its start line, naming the
// function and the offending metric, e.g. "tick: 1 asserts".
type Density struct {
	Start  *regexp.Regexp
	End    *regexp.Regexp
	Braces bool

	// Count is matched on every line of a function; the number of matches
	// must be within [Min, Max]. A negative Max means unbounded.
	Count *regexp.Regexp
	Unit  string
	Min   int
	Max   int

	// MaxLines is the longest allowed function, 0 disables the check.
	MaxLines int

	Suppress string
}

// Function is one bounded region found by a Density matcher.
type Function struct {
	Name  string
	Start int
	End   int
}

// Lines returns the length of the function including both boundary lines.
func (f Function) Lines() int {
	return f.End - f.Start + 1
}

// Match implements FileMatcher.
func (d *Density) Match(src *Source) []Finding {
	var findings []Finding
	for _, fn := range d.Functions(src) {
		problems := d.measure(src, fn)
		if len(problems) == 0 {
			continue
		}
		if suppressed(d.Suppress, src.Line(fn.Start)) {
			continue
		}
		findings = append(findings, Finding{
			Path:    src.Path,
			Line:    fn.Start,
			Excerpt: Excerpt(fn.Name + ": " + strings.Join(problems, ", ")),
		})
	}
	return findings
}

// Functions returns the functions of src in file order.
func (d *Density) Functions(src *Source) []Function {
	if d.Braces {
		return d.braceFunctions(src)
	}

	var (
		fns    []Function
		cur    Function
		inside bool
	)
	for i, line := range src.Lines {
		n := i + 1
		if d.Start.MatchString(line) {
			cur = Function{Name: d.name(line), Start: n}
			inside = true
			continue
		}
		if inside && d.End != nil && d.End.MatchString(line) {
			cur.End = n
			fns = append(fns, cur)
			inside = false
		}
	}
	return fns
}

func (d *Density) braceFunctions(src *Source) []Function {
	var (
		fns    []Function
		cur    Function
		inside bool
		opened bool
		depth  int
	)
	for i, line := range src.Lines {
		n := i + 1
		if (!inside || !opened) && d.Start.MatchString(line) {
			cur = Function{Name: d.name(line), Start: n}
			inside, opened, depth = true, false, 0
		}
		if !inside {
			continue
		}
		for _, r := range line {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			cur.End = n
			fns = append(fns, cur)
			inside = false
		}
	}
	return fns
}

func (d *Density) measure(src *Source, fn Function) []string {
	var problems []string
	if d.MaxLines > 0 && fn.Lines() > d.MaxLines {
		problems = append(problems, fmt.Sprintf("%d lines", fn.Lines()))
	}
	if d.Count != nil {
		count := 0
		for n := fn.Start; n <= fn.End; n++ {
			count += len(d.Count.FindAllStringIndex(src.Line(n), -1))
		}
		if count < d.Min || (d.Max >= 0 && count > d.Max) {
			problems = append(problems, fmt.Sprintf("%d %s", count, d.unit()))
		}
	}
	return problems
}

func (d *Density) name(line string) string {
	m := d.Start.FindStringSubmatch(line)
	if i := d.Start.SubexpIndex("name"); i > 0 && i < len(m) && m[i] != "" {
		return m[i]
	}
	if len(m) > 1 && m[1] != "" {
		return m[1]
	}
	return Excerpt(line)
}

func (d *Density) unit() string {
	if d.Unit == "" {
		return "matches"
	}
	return d.Unit
}
