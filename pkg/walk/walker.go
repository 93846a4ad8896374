package walk

import (
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joe/treewalk/pkg/filesystem"
)

type walkState int

const (
	stateIdle walkState = iota
	stateRunning
	stateDone
)

// Walker produces the events of one depth-first traversal. It is not safe
// for concurrent use; independent Walkers share nothing and may run in
// parallel.
type Walker struct {
	fsys  filesystem.WalkFS
	keys  filesystem.IdentityKeyer
	root  string
	opts  Options
	log   *slog.Logger
	stack frameStack
	guard *cycleGuard
	state walkState

	// The last event returned by Next, which Navigate applies to.
	hasLast   bool
	lastKind  EventKind
	lastFrame *frame
}

// New prepares a walk of root. Nothing is read until the first Next.
// Providers implementing filesystem.IdentityKeyer get constant-time loop
// checks; others are compared with SameFile.
func New(fsys filesystem.WalkFS, root string, opts Options) (*Walker, error) {
	err := opts.validate()
	if err != nil {
		return nil, err
	}

	keys, _ := fsys.(filesystem.IdentityKeyer)

	return &Walker{
		fsys:  fsys,
		keys:  keys,
		root:  root,
		opts:  opts,
		log:   opts.logger().With("root", root),
		stack: frameStack{fsys: fsys},
		guard: newCycleGuard(fsys.SameFile),
	}, nil
}

// Close ends the walk and closes every open directory. It is safe to call
// more than once and after the walk has finished.
func (w *Walker) Close() error {
	w.state = stateDone
	w.hasLast = false
	w.guard.reset()

	err := w.stack.closeAll()
	if err != nil {
		w.log.Debug("closing directories failed", "error", err)
	}

	return err
}

// Depth returns how many directories are currently open.
func (w *Walker) Depth() int {
	return w.stack.len()
}

// Navigate applies a signal to the event most recently returned by Next.
// It has no effect once another Next call has been made.
func (w *Walker) Navigate(sig Signal) error {
	if !sig.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSignal, sig)
	}

	if sig == Terminate {
		return w.Close()
	}

	if !w.hasLast {
		return nil
	}
	w.hasLast = false

	switch sig {
	case SkipSubtree:
		if w.lastKind == EventStartDirectory {
			w.abandon(w.lastFrame)
		}
	case SkipSiblings:
		switch w.lastKind {
		case EventStartDirectory:
			w.abandon(w.lastFrame)

			if parent := w.stack.top(); parent != nil {
				parent.skip = true
			}
		case EventEntry:
			if w.lastFrame != nil {
				w.lastFrame.skip = true
			}
		case EventEndDirectory:
		}
	case Continue, Terminate:
	}

	return nil
}

// Next returns the next event, or false when the walk is over.
func (w *Walker) Next() (Event, bool) {
	w.hasLast = false

	switch w.state {
	case stateDone:
		return Event{}, false
	case stateIdle:
		w.state = stateRunning

		ev := w.visit(w.root, 0, nil)
		if ev.Kind == EventEntry {
			w.state = stateDone
		}

		return ev, true
	case stateRunning:
	}

	top := w.stack.top()
	if top == nil {
		w.state = stateDone
		return Event{}, false
	}

	entry, ok := w.stack.advance(top)
	if !ok {
		return w.exit(), true
	}

	return w.visit(w.fsys.Join(top.path, entry.Name()), top.depth+1, top), true
}

// abandon pops a frame that was just pushed, without an end-directory event.
func (w *Walker) abandon(f *frame) {
	if f == nil || w.stack.top() != f {
		return
	}

	_, err := w.stack.pop()
	if err != nil {
		w.log.Debug("closing skipped directory failed", "path", f.path, "error", err)
	}

	if f.guarded {
		w.guard.leave()
	}
}

// attributes reads a node's attributes under the link policy. When
// following links, a link whose target cannot be read falls back to the
// link's own attributes.
func (w *Walker) attributes(path string) (fs.FileInfo, error) {
	if !w.opts.FollowLinks {
		return w.fsys.Lstat(path) //nolint:wrapcheck // tagged with the path by the caller
	}

	info, err := w.fsys.Stat(path)
	if err == nil {
		return info, nil
	}

	linkInfo, linkErr := w.fsys.Lstat(path)
	if linkErr == nil {
		return linkInfo, nil
	}

	return nil, err //nolint:wrapcheck // tagged with the path by the caller
}

// exit pops the top frame and reports its end-directory event.
func (w *Walker) exit() Event {
	f, closeErr := w.stack.pop()
	if f.guarded {
		w.guard.leave()
	}

	err := f.err
	if err == nil {
		err = closeErr
	}

	ev := Event{Kind: EventEndDirectory, Path: f.path, Depth: f.depth}
	if err != nil {
		ev.Err = &PathError{Kind: KindDirectoryEnumerationFailed, Path: f.path, Err: err}
		w.log.Debug("directory enumeration failed", "path", f.path, "error", err)
	}

	return w.record(ev, nil)
}

func (w *Walker) failed(kind ErrorKind, path string, depth int, parent *frame, err error) Event {
	w.log.Debug(kind.String(), "path", path, "error", err)

	return w.record(Event{
		Kind:  EventEntry,
		Path:  path,
		Depth: depth,
		Err:   &PathError{Kind: kind, Path: path, Err: err},
	}, parent)
}

func (w *Walker) record(ev Event, f *frame) Event {
	w.hasLast = true
	w.lastKind = ev.Kind
	w.lastFrame = f

	return ev
}

// visit turns one node into an entry or start-directory event. parent is
// the frame the node was listed from, nil for the root.
func (w *Walker) visit(path string, depth int, parent *frame) Event {
	info, err := w.attributes(path)
	if err != nil {
		return w.failed(KindEntryUnreadable, path, depth, parent, err)
	}

	if !info.IsDir() || depth >= w.opts.MaxDepth {
		return w.record(Event{Kind: EventEntry, Path: path, Depth: depth, Info: info}, parent)
	}

	var (
		key    any
		hasKey bool
	)

	if w.opts.FollowLinks {
		if w.keys != nil {
			key, hasKey = w.keys.IdentityKey(info)
		}

		if w.guard.wouldCycle(path, key, hasKey) {
			return w.failed(KindCycleDetected, path, depth, parent, ErrLoop)
		}
	}

	f, err := w.stack.push(path, depth)
	if err != nil {
		return w.failed(KindDirectoryUnopenable, path, depth, parent, err)
	}

	if w.opts.FollowLinks {
		w.guard.enter(path, key, hasKey)
		f.guarded = true
	}

	return w.record(Event{Kind: EventStartDirectory, Path: path, Depth: depth, Info: info}, f)
}
