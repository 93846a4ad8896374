// Package errors turns traversal and file operation failures into
// actionable errors: a category plus suggestions the user can act on.
//
// Basic usage:
//
//	enricher := errors.NewEnricher()
//	for path, err := range walk.Paths(fsys, root, opts) {
//	    if err != nil {
//	        fmt.Println(enricher.Enrich(err, ""))
//	        fmt.Println(errors.FormatSuggestions(enricher.Enrich(err, "")))
//	    }
//	}
//
// Walk failures carry their path, so the affected path is usually found
// without help. For plain errors the path is extracted from the message
// ("open /home/user/file.txt: permission denied").
package errors

import "strings"

// Exported constants.
const (
	CategoryDelete      ErrorCategory = "delete"
	CategoryDiskSpace   ErrorCategory = "disk_space"
	CategoryEnumeration ErrorCategory = "enumeration"
	CategoryLoop        ErrorCategory = "loop"
	CategoryPath        ErrorCategory = "path"
	CategoryPermission  ErrorCategory = "permission"
	CategoryRemote      ErrorCategory = "remote"
	CategoryUnknown     ErrorCategory = "unknown"
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	OriginalError() string
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// NewActionableError creates a new ActionableError with the given details.
func NewActionableError(
	originalError string,
	category ErrorCategory,
	suggestions []string,
	affectedPath string,
) ActionableError {
	return &actionableError{
		originalError: originalError,
		category:      category,
		suggestions:   suggestions,
		affectedPath:  affectedPath,
	}
}

// ErrorCategory represents the type of error that occurred.
type ErrorCategory string

// FormatSuggestions formats the suggestions from an ActionableError as a bulleted list.
// Returns empty string if the error is nil, not actionable, or has no suggestions.
func FormatSuggestions(err error) string {
	actionable, ok := err.(ActionableError) //nolint:errorlint // only direct actionable errors carry suggestions
	if !ok {
		return ""
	}

	var builder strings.Builder

	for i, suggestion := range actionable.Suggestions() {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

// actionableError is the concrete implementation of ActionableError.
type actionableError struct {
	cause         error
	originalError string
	category      ErrorCategory
	suggestions   []string
	affectedPath  string
}

// AffectedPath returns the file path affected by this error.
func (e *actionableError) AffectedPath() string {
	return e.affectedPath
}

// Category returns the error category.
func (e *actionableError) Category() ErrorCategory {
	return e.category
}

// Error implements the error interface.
func (e *actionableError) Error() string {
	return e.originalError
}

// OriginalError returns the original error message.
func (e *actionableError) OriginalError() string {
	return e.originalError
}

// Suggestions returns the list of actionable suggestions.
func (e *actionableError) Suggestions() []string {
	return e.suggestions
}

// Unwrap returns the enriched error, if there was one.
func (e *actionableError) Unwrap() error {
	return e.cause
}
