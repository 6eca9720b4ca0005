// Package resolve expands command-line arguments and default glob patterns
// into the sorted, de-duplicated list of files a run operates on.
package resolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileList is a lexically sorted list of unique file paths.
type FileList []string

// Empty reports whether the list has no files.
func (l FileList) Empty() bool { return len(l) == 0 }

// ResolutionError reports a malformed glob. Explicit paths that cannot be
// stat'ed are passed through and surface later as read errors.
type ResolutionError struct {
	Pattern string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v", e.Pattern, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ErrBadPattern is wrapped by ResolutionError for malformed globs.
var ErrBadPattern = errors.New("malformed glob pattern")

// Options tunes resolution.
type Options struct {
	// Root is the directory default patterns are expanded under.
	// Defaults to ".".
	Root string

	// Exclude drops files matching any of these globs. Patterns are matched
	// against the slash-separated path relative to Root.
	Exclude []string
}

// Resolve expands args, or defaults when args is empty.
//
// Each arg is a glob when it contains glob metacharacters, otherwise a path:
// a file is taken as-is and a directory is expanded with the default
// patterns beneath it. Zero matches is not an error.
func Resolve(args, defaults []string, opts Options) (FileList, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}

	for _, p := range append(append([]string{}, defaults...), opts.Exclude...) {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return nil, &ResolutionError{Pattern: p, Err: ErrBadPattern}
		}
	}

	var found []string
	if len(args) == 0 {
		matches, err := expandUnder(root, defaults)
		if err != nil {
			return nil, err
		}
		found = matches
	}

	for _, arg := range args {
		matches, err := expandArg(root, arg, defaults)
		if err != nil {
			return nil, err
		}
		found = append(found, matches...)
	}

	return finalize(root, found, opts.Exclude)
}

func expandArg(root, arg string, defaults []string) ([]string, error) {
	if isGlob(arg) {
		if !doublestar.ValidatePattern(filepath.ToSlash(arg)) {
			return nil, &ResolutionError{Pattern: arg, Err: ErrBadPattern}
		}
		return glob(arg)
	}

	info, err := os.Stat(arg)
	if err != nil {
		return []string{arg}, nil
	}
	if info.IsDir() {
		return expandUnder(arg, defaults)
	}
	return []string{arg}, nil
}

func expandUnder(dir string, patterns []string) ([]string, error) {
	var found []string
	for _, pattern := range patterns {
		matches, err := glob(filepath.Join(dir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, err
		}
		found = append(found, matches...)
	}
	return found, nil
}

func glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &ResolutionError{Pattern: pattern, Err: fmt.Errorf("%w: %v", ErrBadPattern, err)}
	}
	return matches, nil
}

func finalize(root string, found, exclude []string) (FileList, error) {
	seen := make(map[string]struct{}, len(found))
	files := make(FileList, 0, len(found))

	for _, f := range found {
		clean := filepath.Clean(f)
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}

		excluded, err := isExcluded(root, clean, exclude)
		if err != nil {
			return nil, err
		}
		if !excluded {
			files = append(files, clean)
		}
	}

	sort.Strings(files)
	return files, nil
}

func isExcluded(root, path string, exclude []string) (bool, error) {
	if len(exclude) == 0 {
		return false, nil
	}
	rel := path
	if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}

	for _, pattern := range exclude {
		ok, err := MatchPath(pattern, rel)
		if err != nil {
			return false, &ResolutionError{Pattern: pattern, Err: ErrBadPattern}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// MatchPath matches a doublestar glob against a path. Absolute paths are
// matched without their volume and leading separator, so "**/api/**"
// accepts "/srv/app/api/users.js".
func MatchPath(pattern, path string) (bool, error) {
	slash := filepath.ToSlash(strings.TrimPrefix(path, filepath.VolumeName(path)))
	return doublestar.Match(filepath.ToSlash(pattern), strings.TrimLeft(slash, "/"))
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}
