// Package walk traverses a directory tree depth-first, one event at a time.
//
// A Walker is an explicit state machine: each call to Next returns a single
// Event (an entry, the start of a directory, or the end of one) and the
// caller may steer the walk with Navigate before asking for the next event.
// Walk drives a Walker on behalf of a Visitor; Stream, Paths and Find expose
// the same traversal as a pull sequence.
//
// Filesystem failures never stop a walk. They arrive as events carrying a
// *PathError, and only the affected node or subtree is abandoned. Every
// directory handle a walk opens is closed on every exit path, including
// Terminate, Close, a failing visitor, and a consumer that stops pulling.
package walk
