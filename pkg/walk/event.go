package walk

import "io/fs"

// EventKind discriminates walk events.
type EventKind int

// EventKind values.
const (
	// EventEntry is a non-directory, or a directory that will not be
	// descended (depth limit, loop, or open failure).
	EventEntry EventKind = iota
	// EventStartDirectory precedes every event for the directory's descendants.
	EventStartDirectory
	// EventEndDirectory follows every event for the directory's descendants.
	EventEndDirectory
)

// String returns a lowercase, hyphenated name for the kind.
func (k EventKind) String() string {
	switch k {
	case EventEntry:
		return "entry"
	case EventStartDirectory:
		return "start-directory"
	case EventEndDirectory:
		return "end-directory"
	default:
		return "unknown"
	}
}

// Event is one step of a walk.
//
// Entry events carry Info on success and Err on failure. Start-directory
// events carry Info. End-directory events carry Err when enumerating or
// closing the directory failed.
type Event struct {
	Kind  EventKind
	Path  string
	Depth int
	Info  fs.FileInfo
	Err   error
}
