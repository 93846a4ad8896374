package walk

// Signal is the caller's navigation decision after an event.
type Signal int

// Signal values.
const (
	// Continue walks on normally.
	Continue Signal = iota
	// SkipSubtree, after a start-directory event, leaves the directory
	// without visiting its children and without an end-directory event.
	SkipSubtree
	// SkipSiblings stops enumeration of the directory the last event came
	// from. After a start-directory event the new directory is also left
	// unvisited. After an end-directory event it does nothing.
	SkipSiblings
	// Terminate ends the walk immediately and closes every open directory.
	Terminate
)

// String returns a lowercase, hyphenated name for the signal.
func (s Signal) String() string {
	switch s {
	case Continue:
		return "continue"
	case SkipSubtree:
		return "skip-subtree"
	case SkipSiblings:
		return "skip-siblings"
	case Terminate:
		return "terminate"
	default:
		return "unknown"
	}
}

func (s Signal) valid() bool {
	return s >= Continue && s <= Terminate
}
