package match

import (
	"io/fs"
	"sort"
	"strings"
)

// Source is the immutable content of one file, split into lines.
type Source struct {
	Path  string
	Text  string
	Lines []string

	// starts holds the byte offset at which each line begins.
	starts []int
}

// NewSource builds a Source from raw file content. Line endings may be LF or
// CRLF; a trailing newline does not produce an empty final line.
func NewSource(path string, content []byte) *Source {
	text := string(content)
	src := &Source{Path: path, Text: text}
	if text == "" {
		return src
	}

	offset := 0
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		if end < 0 {
			if offset < len(text) {
				src.starts = append(src.starts, offset)
				src.Lines = append(src.Lines, strings.TrimSuffix(text[offset:], "\r"))
			}
			break
		}
		src.starts = append(src.starts, offset)
		src.Lines = append(src.Lines, strings.TrimSuffix(text[offset:offset+end], "\r"))
		offset += end + 1
	}
	return src
}

// LineAt returns the 1-based line containing the byte offset.
func (s *Source) LineAt(offset int) int {
	if len(s.starts) == 0 {
		return 1
	}
	i := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] > offset })
	if i == 0 {
		return 1
	}
	return i
}

// Line returns the text of a 1-based line, or "" when out of range.
func (s *Source) Line(n int) string {
	if n < 1 || n > len(s.Lines) {
		return ""
	}
	return s.Lines[n-1]
}

// Corpus is the readable file set of one run, handed to set-level matchers.
type Corpus struct {
	Sources []*Source

	// FS is rooted at the run's working directory; it is used by checks that
	// look for the existence of files rather than their content.
	FS fs.FS
}

// FileMatcher evaluates a rule against a single file.
type FileMatcher interface {
	Match(src *Source) []Finding
}

// SetMatcher evaluates a rule once against the whole file set.
type SetMatcher interface {
	MatchSet(c *Corpus) []Finding
}

// suppressed reports whether line carries the inline suppression token.
func suppressed(token, line string) bool {
	return token != "" && strings.Contains(line, token)
}
