// Package match implements the matcher kinds that turn one rule and one
// file's content into Findings.
//
// Matchers are pure: they never touch the file system and never keep state
// between calls, so the engine may run them concurrently on shared Sources.
package match

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// FileLevel is the line number of a Finding that refers to a whole file.
const FileLevel = 0

// maxExcerptRunes bounds the excerpt stored on a Finding.
const maxExcerptRunes = 160

// Finding is one occurrence of a rule being violated.
type Finding struct {
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line"`
	Excerpt string `json:"excerpt"`
}

// Location returns "path:line", "path" for file-level findings, or an empty
// string for findings that apply to the whole file set.
func (f Finding) Location() string {
	switch {
	case f.Path == "":
		return ""
	case f.Line == FileLevel:
		return f.Path
	default:
		return fmt.Sprintf("%s:%d", f.Path, f.Line)
	}
}

// String renders the finding the way grep would print it.
func (f Finding) String() string {
	loc := f.Location()
	if loc == "" {
		return f.Excerpt
	}
	if f.Excerpt == "" {
		return loc
	}
	return loc + ": " + f.Excerpt
}

// Excerpt trims s and truncates it to a bounded number of runes.
func Excerpt(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxExcerptRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxExcerptRunes]) + "…"
}

// SortFindings orders findings by path, then line. Findings on the same line
// keep their relative order.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Path != findings[j].Path {
			return findings[i].Path < findings[j].Path
		}
		return findings[i].Line < findings[j].Line
	})
}
