package walk

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported inside events.
type ErrorKind int

// ErrorKind values.
const (
	// KindEntryUnreadable: attributes of a node could not be read.
	KindEntryUnreadable ErrorKind = iota + 1
	// KindDirectoryUnopenable: a directory could not be opened for listing.
	KindDirectoryUnopenable
	// KindDirectoryEnumerationFailed: listing failed part way through.
	KindDirectoryEnumerationFailed
	// KindCycleDetected: a directory is one of its own ancestors.
	KindCycleDetected
)

// String returns a short description of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindEntryUnreadable:
		return "entry unreadable"
	case KindDirectoryUnopenable:
		return "directory unopenable"
	case KindDirectoryEnumerationFailed:
		return "directory enumeration failed"
	case KindCycleDetected:
		return "cycle detected"
	default:
		return "unknown failure"
	}
}

// Exported variables.
var (
	// ErrLoop is wrapped by KindCycleDetected failures.
	ErrLoop = errors.New("symbolic link loop")

	// ErrInvalidSignal is returned by Navigate for values outside the Signal set.
	ErrInvalidSignal = errors.New("invalid navigation signal")
)

// PathError reports a failure at one node of the walk.
type PathError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes the provider error, so errors.Is(err, fs.ErrNotExist) works.
func (e *PathError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first PathError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var pathErr *PathError
	if errors.As(err, &pathErr) {
		return pathErr.Kind
	}

	return 0
}
