package walk

import (
	"io/fs"

	"github.com/joe/treewalk/pkg/filesystem"
)

// Visitor receives the events of a walk driven by Walk. A returned error
// stops the walk and is returned from Walk unchanged.
type Visitor interface {
	// PreVisitDirectory is called before a directory's children.
	PreVisitDirectory(path string, info fs.FileInfo) (Signal, error)

	// VisitEntry is called for every entry event. Exactly one of info and
	// err is non-nil; err is a *PathError.
	VisitEntry(path string, info fs.FileInfo, err error) (Signal, error)

	// PostVisitDirectory is called after a directory's children. err is a
	// *PathError when listing or closing the directory failed.
	PostVisitDirectory(path string, err error) (Signal, error)
}

// Walk visits the tree rooted at root. It returns nil when the walk runs
// to completion or the visitor returns Terminate, and the visitor's error
// otherwise. Every directory opened is closed before Walk returns.
func Walk(fsys filesystem.WalkFS, root string, opts Options, visitor Visitor) error {
	walker, err := New(fsys, root, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = walker.Close()
	}()

	for {
		ev, ok := walker.Next()
		if !ok {
			return nil
		}

		var sig Signal

		switch ev.Kind {
		case EventStartDirectory:
			sig, err = visitor.PreVisitDirectory(ev.Path, ev.Info)
		case EventEntry:
			sig, err = visitor.VisitEntry(ev.Path, ev.Info, ev.Err)
		case EventEndDirectory:
			sig, err = visitor.PostVisitDirectory(ev.Path, ev.Err)
		}

		if err != nil {
			return err
		}

		if sig == Terminate {
			return nil
		}

		err = walker.Navigate(sig)
		if err != nil {
			return err
		}
	}
}

// VisitorFuncs adapts plain functions into a Visitor. A nil PreVisit
// continues. A nil Entry or PostVisit continues on success and returns the
// error it was given on failure, which ends the walk.
type VisitorFuncs struct {
	PreVisit  func(path string, info fs.FileInfo) (Signal, error)
	Entry     func(path string, info fs.FileInfo, err error) (Signal, error)
	PostVisit func(path string, err error) (Signal, error)
}

// PreVisitDirectory implements Visitor.
func (v VisitorFuncs) PreVisitDirectory(path string, info fs.FileInfo) (Signal, error) {
	if v.PreVisit == nil {
		return Continue, nil
	}

	return v.PreVisit(path, info)
}

// VisitEntry implements Visitor.
func (v VisitorFuncs) VisitEntry(path string, info fs.FileInfo, err error) (Signal, error) {
	if v.Entry == nil {
		return Continue, err
	}

	return v.Entry(path, info, err)
}

// PostVisitDirectory implements Visitor.
func (v VisitorFuncs) PostVisitDirectory(path string, err error) (Signal, error) {
	if v.PostVisit == nil {
		return Continue, err
	}

	return v.PostVisit(path, err)
}
