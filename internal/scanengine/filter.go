package scanengine

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileFilter decides which visited nodes are reported.
type FileFilter interface {
	// ShouldInclude returns true if the node at the given slash-separated
	// path, relative to its root, should be reported.
	ShouldInclude(relativePath string) bool
}

// GlobFilter implements FileFilter using doublestar glob patterns.
type GlobFilter struct {
	normalizedPattern string
	isEmpty           bool
}

// NewGlobFilter creates a new GlobFilter with the given pattern.
// Empty pattern matches all files. Invalid patterns are rejected.
func NewGlobFilter(pattern string) (*GlobFilter, error) {
	normalized := strings.ToLower(pattern)

	if pattern != "" && !doublestar.ValidatePattern(normalized) {
		return nil, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, pattern)
	}

	return &GlobFilter{
		normalizedPattern: normalized,
		isEmpty:           pattern == "",
	}, nil
}

// ShouldInclude returns true if the path matches the pattern, ignoring case.
func (f *GlobFilter) ShouldInclude(relativePath string) bool {
	if f.isEmpty {
		return true
	}

	matched, err := doublestar.Match(f.normalizedPattern, strings.ToLower(relativePath))
	if err != nil {
		return false
	}

	return matched
}

// Matcher adapts a filter into a walk.Find predicate for one root.
// Directories always match so their children are still walked.
func Matcher(filter FileFilter, root string) func(path string, info fs.FileInfo) bool {
	return func(path string, info fs.FileInfo) bool {
		if filter == nil || info.IsDir() {
			return true
		}

		return filter.ShouldInclude(RelativePath(root, path))
	}
}

// RelativePath returns path relative to root with slash separators.
// The root itself is ".".
func RelativePath(root, path string) string {
	parts := strings.FieldsFunc(strings.TrimPrefix(path, root), func(r rune) bool {
		return r == '/' || r == '\\'
	})

	if len(parts) == 0 {
		return "."
	}

	return strings.Join(parts, "/")
}
