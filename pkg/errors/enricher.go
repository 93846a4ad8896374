package errors

import (
	"errors"
	"io/fs"
	"regexp"
	"strings"
	"syscall"

	"github.com/joe/treewalk/pkg/filesystem"
	"github.com/joe/treewalk/pkg/walk"
)

// Enricher enriches standard errors with actionable suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher creates a new Enricher with default pattern matcher and suggestion generator.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled once, shared by every enricher
	pathExtractionPatterns = []*regexp.Regexp{
		// "open /path/to/file: ..." and relative paths
		regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
		// Windows paths with backslashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:\\[^\s:]+):`),
		// Windows paths with forward slashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:/[^\s:]+):`),
	}
)

// enricher is the concrete implementation of Enricher.
type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich categorizes err and attaches suggestions. Actionable errors are
// returned unchanged and nil stays nil. The category comes from the error
// chain when it holds a known sentinel, and from the message otherwise.
// An empty affectedPath is taken from the chain or the message.
func (e *enricher) Enrich(err error, affectedPath string) error {
	if err == nil {
		return nil
	}

	var actionableErr ActionableError
	if errors.As(err, &actionableErr) {
		return actionableErr
	}

	errMsg := err.Error()

	if affectedPath == "" {
		affectedPath = pathOf(err)
	}

	category := classify(err)
	if category == CategoryUnknown {
		category = e.matcher.Match(errMsg)
	}

	return &actionableError{
		cause:         err,
		originalError: errMsg,
		category:      category,
		suggestions:   e.generator.Generate(category, affectedPath),
		affectedPath:  affectedPath,
	}
}

// classify inspects the error chain for sentinels whose category is certain.
func classify(err error) ErrorCategory {
	switch {
	case errors.Is(err, walk.ErrLoop),
		errors.Is(err, filesystem.ErrTooManyLinks),
		errors.Is(err, syscall.ELOOP):
		return CategoryLoop
	case errors.Is(err, fs.ErrPermission):
		return CategoryPermission
	case errors.Is(err, fs.ErrNotExist):
		return CategoryPath
	case walk.KindOf(err) == walk.KindDirectoryEnumerationFailed:
		return CategoryEnumeration
	default:
		return CategoryUnknown
	}
}

// pathOf returns the path recorded in the error chain, or one extracted
// from the message.
func pathOf(err error) string {
	var walkErr *walk.PathError
	if errors.As(err, &walkErr) && walkErr.Path != "" {
		return walkErr.Path
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Path != "" {
		return pathErr.Path
	}

	return extractPath(err.Error())
}

// extractPath pulls a path out of "operation /path/to/file: description"
// style messages. Returns empty string if no path is found.
func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			path := strings.TrimSpace(matches[1])
			if path != "" {
				return path
			}
		}
	}

	return ""
}
