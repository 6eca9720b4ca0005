package match

import "regexp"

// Absence requires Pattern to occur somewhere in each file. A file without a
// match yields exactly one file-level Finding.
type Absence struct {
	Pattern *regexp.Regexp
	Message string
}

// Match implements FileMatcher.
func (a *Absence) Match(src *Source) []Finding {
	if a.Pattern.MatchString(src.Text) {
		return nil
	}
	return []Finding{{Path: src.Path, Line: FileLevel, Excerpt: a.message()}}
}

func (a *Absence) message() string {
	if a.Message != "" {
		return Excerpt(a.Message)
	}
	return Excerpt("required pattern not found: " + a.Pattern.String())
}

// SetAbsence requires Pattern to occur in at least one file of the set. When
// no file matches, a single Finding without a path is produced.
type SetAbsence struct {
	Pattern *regexp.Regexp
	Message string
}

// MatchSet implements SetMatcher.
func (a *SetAbsence) MatchSet(c *Corpus) []Finding {
	for _, src := range c.Sources {
		if a.Pattern.MatchString(src.Text) {
			return nil
		}
	}
	msg := a.Message
	if msg == "" {
		msg = "required pattern not found in any file: " + a.Pattern.String()
	}
	return []Finding{{Line: FileLevel, Excerpt: Excerpt(msg)}}
}
