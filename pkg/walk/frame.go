package walk

import (
	"errors"
	"fmt"
	"io"

	"github.com/joe/treewalk/pkg/filesystem"
)

// frame is one open directory and its enumeration state.
type frame struct {
	path    string
	depth   int
	handle  filesystem.DirHandle
	guarded bool

	// skip makes the next advance report end of directory.
	skip bool
	// err is the mid-listing failure held for the end-directory event.
	err error
}

// frameStack owns the directory handles of every open ancestor.
// Handles are closed in LIFO order.
type frameStack struct {
	fsys   filesystem.WalkFS
	frames []*frame
}

func (s *frameStack) push(path string, depth int) (*frame, error) {
	handle, err := s.fsys.OpenDir(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // tagged with the path by the caller
	}

	f := &frame{path: path, depth: depth, handle: handle}
	s.frames = append(s.frames, f)

	return f, nil
}

func (s *frameStack) top() *frame {
	if len(s.frames) == 0 {
		return nil
	}

	return s.frames[len(s.frames)-1]
}

// pop closes and discards the top frame.
func (s *frameStack) pop() (*frame, error) {
	f := s.top()
	if f == nil {
		return nil, nil
	}

	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]

	err := f.handle.Close()
	if err != nil {
		return f, fmt.Errorf("failed to close directory %s: %w", f.path, err)
	}

	return f, nil
}

func (s *frameStack) len() int {
	return len(s.frames)
}

// closeAll pops every frame and joins the close errors.
func (s *frameStack) closeAll() error {
	var errs []error

	for s.len() > 0 {
		_, err := s.pop()
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// advance returns f's next child. It returns false at the end of the
// listing, after a skip, or once enumeration has failed; a failure is kept
// on the frame.
func (s *frameStack) advance(f *frame) (filesystem.DirEntry, bool) {
	if f.skip || f.err != nil {
		return nil, false
	}

	entry, err := f.handle.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			f.err = err
		}

		return nil, false
	}

	return entry, entry != nil
}
