package walk

import (
	"io"
	"io/fs"
	"iter"

	"github.com/joe/treewalk/pkg/filesystem"
)

// Entry is one node yielded by a Stream. Directories are yielded once,
// when they are entered.
type Entry struct {
	Path  string
	Depth int
	Info  fs.FileInfo
}

// Stream is the pull form of a walk. It owns open directory handles until
// it is exhausted or closed, and cannot be restarted.
type Stream struct {
	walker *Walker
	done   bool
}

// NewStream prepares a pull walk of root.
func NewStream(fsys filesystem.WalkFS, root string, opts Options) (*Stream, error) {
	walker, err := New(fsys, root, opts)
	if err != nil {
		return nil, err
	}

	return &Stream{walker: walker}, nil
}

// Close releases every open directory. Later calls to Next return io.EOF.
func (s *Stream) Close() error {
	s.done = true

	return s.walker.Close()
}

// Next returns the next node. A node that could not be read, and a
// directory whose listing failed part way, come back as a *PathError at
// the pull where they occur; the stream carries on after them. At the end
// Next returns io.EOF itself and releases the walk. Compare with ==: a
// failure's provider error may wrap io.EOF.
func (s *Stream) Next() (Entry, error) {
	if s.done {
		return Entry{}, io.EOF
	}

	for {
		ev, ok := s.walker.Next()
		if !ok {
			_ = s.Close()
			return Entry{}, io.EOF
		}

		if ev.Err != nil {
			return Entry{Path: ev.Path, Depth: ev.Depth}, ev.Err
		}

		if ev.Kind == EventEndDirectory {
			continue
		}

		return Entry{Path: ev.Path, Depth: ev.Depth, Info: ev.Info}, nil
	}
}

// SkipDir stops descent into the directory Next just returned. It does
// nothing for other nodes.
func (s *Stream) SkipDir() {
	_ = s.walker.Navigate(SkipSubtree)
}

// Paths yields the path of every node under root. Breaking out of the
// loop closes the walk.
func Paths(fsys filesystem.WalkFS, root string, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for entry, err := range entries(fsys, root, opts) {
			if !yield(entry.Path, err) {
				return
			}
		}
	}
}

// Find yields the nodes under root for which match returns true, plus
// every failure. A nil match accepts everything.
func Find(
	fsys filesystem.WalkFS,
	root string,
	opts Options,
	match func(path string, info fs.FileInfo) bool,
) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for entry, err := range entries(fsys, root, opts) {
			if err == nil && match != nil && !match(entry.Path, entry.Info) {
				continue
			}

			if !yield(entry, err) {
				return
			}
		}
	}
}

func entries(fsys filesystem.WalkFS, root string, opts Options) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		stream, err := NewStream(fsys, root, opts)
		if err != nil {
			yield(Entry{Path: root}, err)
			return
		}

		defer func() {
			_ = stream.Close()
		}()

		for {
			entry, err := stream.Next()
			if err == io.EOF { //nolint:errorlint // Next returns the bare sentinel at the end
				return
			}

			if !yield(entry, err) {
				return
			}
		}
	}
}
