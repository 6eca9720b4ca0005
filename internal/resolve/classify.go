package resolve

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// Classifier narrows a file list to the files certain rules apply to, for
// example HTTP endpoint handlers. A file is applicable when its path matches
// one of the path entries or its content matches one of the content patterns.
//
// Path entries containing glob metacharacters are doublestar globs. Plain
// entries such as "/api/" or "routes" are regular expressions searched for
// anywhere in the slash-separated path.
type Classifier struct {
	globs    []string
	paths    []*regexp.Regexp
	contents []*regexp.Regexp
}

// NewClassifier validates the path entries and returns a Classifier.
func NewClassifier(paths []string, contents []*regexp.Regexp) (*Classifier, error) {
	c := &Classifier{contents: append([]*regexp.Regexp(nil), contents...)}
	for _, p := range paths {
		if isGlob(p) {
			if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
				return nil, fmt.Errorf("%w: %q", ErrBadPattern, p)
			}
			c.globs = append(c.globs, p)
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPattern, p, err)
		}
		c.paths = append(c.paths, re)
	}
	return c, nil
}

// Applicable reports whether one file belongs to the narrower subset.
func (c *Classifier) Applicable(path, content string) bool {
	for _, p := range c.globs {
		if ok, _ := MatchPath(p, path); ok {
			return true
		}
	}
	slash := filepath.ToSlash(path)
	for _, re := range c.paths {
		if re.MatchString(slash) {
			return true
		}
	}
	for _, re := range c.contents {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// Classify splits files into applicable and other, keeping their order.
// content returns a file's text; files it cannot provide are never applicable
// by content.
func (c *Classifier) Classify(files FileList, content func(path string) (string, bool)) (applicable, other FileList) {
	for _, f := range files {
		text, _ := content(f)
		if c.Applicable(f, text) {
			applicable = append(applicable, f)
		} else {
			other = append(other, f)
		}
	}
	return applicable, other
}
