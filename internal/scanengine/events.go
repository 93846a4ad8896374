package scanengine

import (
	"github.com/google/uuid"

	"github.com/joe/treewalk/pkg/walk"
)

// Event is the interface implemented by all scan engine events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events. Emit may be called
// from several goroutines, one per root being scanned.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function into an EventEmitter.
type EmitterFunc func(Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// Run events

// RunStarted is emitted once before any root is opened.
type RunStarted struct {
	RunID uuid.UUID
	Roots []string
}

func (RunStarted) isEvent() {}

// RunComplete is emitted once after every root has finished.
type RunComplete struct {
	Result *Result
}

func (RunComplete) isEvent() {}

// Per-root events

// ScanStarted is emitted when a root's provider is ready and its walk begins.
type ScanStarted struct {
	Root    string
	Backend string
}

func (ScanStarted) isEvent() {}

// DirectoryEntered is emitted for every start-directory event.
type DirectoryEntered struct {
	Root  string
	Path  string
	Depth int
}

func (DirectoryEntered) isEvent() {}

// DirectoryLeft is emitted for every end-directory event that did not fail.
type DirectoryLeft struct {
	Root  string
	Path  string
	Depth int
}

func (DirectoryLeft) isEvent() {}

// EntryVisited is emitted for entry events and entered directories that
// pass the engine's filter.
type EntryVisited struct {
	Root  string
	Path  string
	Depth int
	Size  int64
	IsDir bool
	// IsLink is set for links reported as leaves (links are not being followed).
	IsLink bool
}

func (EntryVisited) isEvent() {}

// WalkFailed is emitted for every event that carries a failure.
type WalkFailed struct {
	Root  string
	Path  string
	Depth int
	Kind  walk.ErrorKind
	Err   error
}

func (WalkFailed) isEvent() {}

// ScanProgress is emitted every ProgressInterval visited nodes.
type ScanProgress struct {
	Root    string
	Visited int
}

func (ScanProgress) isEvent() {}

// ScanComplete is emitted when a root's walk ends, successfully or not.
type ScanComplete struct {
	Summary RootSummary
}

func (ScanComplete) isEvent() {}

// Error events

// ErrorOccurred is emitted when a root cannot be scanned at all.
type ErrorOccurred struct {
	Root string
	Err  error
}

func (ErrorOccurred) isEvent() {}
