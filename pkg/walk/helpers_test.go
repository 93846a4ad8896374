//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package walk_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joe/treewalk/pkg/filesystem"
	"github.com/joe/treewalk/pkg/walk"
)

// rec is the comparable projection of an event.
type rec struct {
	Kind  walk.EventKind
	Path  string
	Depth int
	Fail  walk.ErrorKind
}

func start(path string, depth int) rec { return rec{Kind: walk.EventStartDirectory, Path: path, Depth: depth} }
func end(path string, depth int) rec   { return rec{Kind: walk.EventEndDirectory, Path: path, Depth: depth} }
func entry(path string, depth int) rec { return rec{Kind: walk.EventEntry, Path: path, Depth: depth} }

func failed(kind walk.ErrorKind, path string, depth int) rec {
	return rec{Kind: walk.EventEntry, Path: path, Depth: depth, Fail: kind}
}

func toRec(ev walk.Event) rec {
	return rec{Kind: ev.Kind, Path: ev.Path, Depth: ev.Depth, Fail: walk.KindOf(ev.Err)}
}

// exampleTree builds /root with a.txt, b.txt and sub/c.txt.
func exampleTree() *filesystem.MockFileSystem {
	mfs := filesystem.NewMockFileSystem()
	now := time.Now()

	mfs.AddFile("/root/a.txt", []byte("a"), now)
	mfs.AddFile("/root/b.txt", []byte("bb"), now)
	mfs.AddFile("/root/sub/c.txt", []byte("ccc"), now)

	return mfs
}

// collect drains a walker, applying steer to each event.
func collect(t *testing.T, w *walk.Walker, steer func(walk.Event) walk.Signal) []rec {
	t.Helper()

	var got []rec

	for {
		ev, ok := w.Next()
		if !ok {
			return got
		}

		got = append(got, toRec(ev))

		if steer != nil {
			if err := w.Navigate(steer(ev)); err != nil { //nolint:noinlineerr // test helper
				t.Fatalf("Navigate: %v", err)
			}
		}
	}
}

func walkAll(t *testing.T, fsys filesystem.WalkFS, root string, opts walk.Options, steer func(walk.Event) walk.Signal) []rec {
	t.Helper()

	w, err := walk.New(fsys, root, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	defer func() {
		_ = w.Close()
	}()

	return collect(t, w, steer)
}

func assertEvents(t *testing.T, want, got []rec) {
	t.Helper()

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func assertHandlesBalanced(t *testing.T, mfs *filesystem.MockFileSystem) {
	t.Helper()

	opened, closed := mfs.HandleStats()
	if opened != closed {
		t.Errorf("directory handles: opened %d, closed %d", opened, closed)
	}
}

func signalOn(kind walk.EventKind, path string, sig walk.Signal) func(walk.Event) walk.Signal {
	return func(ev walk.Event) walk.Signal {
		if ev.Kind == kind && ev.Path == path {
			return sig
		}

		return walk.Continue
	}
}
