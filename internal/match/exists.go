package match

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileExists requires at least one of Paths (doublestar globs, slash
// separated, relative to the run root) to exist.
type FileExists struct {
	Paths   []string
	Message string
}

// MatchSet implements SetMatcher.
func (e *FileExists) MatchSet(c *Corpus) []Finding {
	if c.FS != nil {
		for _, pattern := range e.Paths {
			found, err := doublestar.Glob(c.FS, pattern)
			if err == nil && len(found) > 0 {
				return nil
			}
		}
	}
	msg := e.Message
	if msg == "" {
		msg = "none of the required files exist: " + strings.Join(e.Paths, ", ")
	}
	return []Finding{{Line: FileLevel, Excerpt: Excerpt(msg)}}
}
