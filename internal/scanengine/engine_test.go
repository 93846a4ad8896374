//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package scanengine_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for gomega matchers

	"github.com/joe/treewalk/internal/scanengine"
	"github.com/joe/treewalk/pkg/filesystem"
	"github.com/joe/treewalk/pkg/walk"
)

// eventLog is a concurrency-safe EventEmitter.
type eventLog struct {
	mu     sync.Mutex
	events []scanengine.Event
}

func (l *eventLog) Emit(event scanengine.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
}

func (l *eventLog) all() []scanengine.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]scanengine.Event(nil), l.events...)
}

// fixedTime is a TimeProvider that advances one second per call.
type fixedTime struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fixedTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(time.Second)

	return f.now
}

// mockOpener serves named mock providers; unknown roots fail to open.
func mockOpener(trees map[string]*filesystem.MockFileSystem) scanengine.OpenFunc {
	return func(_ context.Context, root string) (filesystem.FileSystem, string, func(), error) {
		mfs, ok := trees[root]
		if !ok {
			return nil, "", nil, fmt.Errorf("no such provider: %w", fs.ErrNotExist)
		}

		return mfs, "/root", func() {}, nil
	}
}

func sampleTree() *filesystem.MockFileSystem {
	mfs := filesystem.NewMockFileSystem()
	now := time.Now()

	mfs.AddFile("/root/a.go", []byte("package a"), now)
	mfs.AddFile("/root/b.txt", []byte("bb"), now)
	mfs.AddFile("/root/sub/c.go", []byte("package c"), now)
	mfs.AddSymlink("/root/link", "/root/sub")

	return mfs
}

func TestEngine_ScansEveryRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	first, second := sampleTree(), sampleTree()
	second.AddFile("/root/sub/deep/d.txt", []byte("dddd"), time.Now())

	engine := scanengine.NewEngine([]string{"first", "second"}, walk.DefaultOptions())
	engine.Open = mockOpener(map[string]*filesystem.MockFileSystem{"first": first, "second": second})
	engine.TimeProvider = &fixedTime{}

	result, err := engine.Run(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(result.RunID).ShouldNot(Equal(uuid.Nil))
	g.Expect(result.Roots).Should(HaveLen(2))

	one := result.Roots[0]
	g.Expect(one.Root).Should(Equal("first"))
	g.Expect(one.Backend).Should(Equal(filesystem.BackendLocal.String()))
	g.Expect(one.Directories).Should(Equal(2))
	g.Expect(one.Files).Should(Equal(3))
	g.Expect(one.Symlinks).Should(Equal(1))
	g.Expect(one.Visited).Should(Equal(6))
	g.Expect(one.Bytes).Should(Equal(int64(len("package a") + 2 + len("package c"))))
	g.Expect(one.Deepest).Should(Equal(2))
	g.Expect(one.Err).ShouldNot(HaveOccurred())

	two := result.Roots[1]
	g.Expect(two.Directories).Should(Equal(3))
	g.Expect(two.Deepest).Should(Equal(3))

	total := result.Totals()
	g.Expect(total.Files).Should(Equal(7))
	g.Expect(result.FailureCount()).Should(BeZero())
	g.Expect(result.Duration).Should(BeNumerically(">", 0))

	for _, mfs := range []*filesystem.MockFileSystem{first, second} {
		opened, closed := mfs.HandleStats()
		g.Expect(closed).Should(Equal(opened))
	}

	status := engine.GetStatus()
	g.Expect(status.RunID).Should(Equal(result.RunID))
	g.Expect(status.RootsDone).Should(Equal(2))
	g.Expect(status.Entries).Should(Equal(14))
	g.Expect(status.EntriesPerSecond).Should(BeNumerically(">", 0))
}

func TestEngine_EmitsEventsInWalkOrder(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	log := &eventLog{}

	engine := scanengine.NewEngine([]string{"only"}, walk.DefaultOptions())
	engine.Open = mockOpener(map[string]*filesystem.MockFileSystem{"only": sampleTree()})
	engine.SetEventEmitter(log)

	_, err := engine.Run(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	var trace []string

	for _, event := range log.all() {
		switch e := event.(type) {
		case scanengine.RunStarted:
			trace = append(trace, "run")
		case scanengine.ScanStarted:
			trace = append(trace, "scan "+e.Root)
		case scanengine.DirectoryEntered:
			trace = append(trace, "enter "+e.Path)
		case scanengine.EntryVisited:
			trace = append(trace, "visit "+e.Path)
		case scanengine.DirectoryLeft:
			trace = append(trace, "leave "+e.Path)
		case scanengine.ScanComplete:
			trace = append(trace, "done "+e.Summary.Root)
		case scanengine.RunComplete:
			trace = append(trace, "complete")
		}
	}

	g.Expect(trace).Should(Equal([]string{
		"run",
		"scan only",
		"enter /root",
		"visit /root",
		"visit /root/a.go",
		"visit /root/b.txt",
		"visit /root/link",
		"enter /root/sub",
		"visit /root/sub",
		"visit /root/sub/c.go",
		"leave /root/sub",
		"leave /root",
		"done only",
		"complete",
	}))
}

func TestEngine_FilterLimitsReportedFiles(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	filter, err := scanengine.NewGlobFilter("**/*.go")
	g.Expect(err).ShouldNot(HaveOccurred())

	engine := scanengine.NewEngine([]string{"only"}, walk.DefaultOptions())
	engine.Open = mockOpener(map[string]*filesystem.MockFileSystem{"only": sampleTree()})
	engine.Filter = filter

	result, err := engine.Run(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	summary := result.Roots[0]
	g.Expect(summary.Files).Should(Equal(2))
	g.Expect(summary.Symlinks).Should(BeZero())
	g.Expect(summary.Directories).Should(Equal(2))
	g.Expect(summary.Visited).Should(Equal(6))
}

func TestEngine_FailuresAreCollectedPerRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	broken := sampleTree()
	broken.FailOpenDir("/root/sub", fs.ErrPermission)

	log := &eventLog{}

	engine := scanengine.NewEngine([]string{"broken", "missing"}, walk.DefaultOptions())
	engine.Open = mockOpener(map[string]*filesystem.MockFileSystem{"broken": broken})
	engine.SetEventEmitter(log)

	result, err := engine.Run(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	g.Expect(result.Roots[0].Failures).Should(HaveLen(1))
	g.Expect(walk.KindOf(result.Roots[0].Failures[0])).Should(Equal(walk.KindDirectoryUnopenable))
	g.Expect(result.Roots[0].Files).Should(Equal(2))

	g.Expect(result.Roots[1].Err).Should(MatchError(fs.ErrNotExist))
	g.Expect(result.FailureCount()).Should(Equal(2))

	var (
		walkFailed []string
		rootFailed []string
	)

	for _, event := range log.all() {
		switch e := event.(type) {
		case scanengine.WalkFailed:
			walkFailed = append(walkFailed, e.Path)
			g.Expect(e.Kind).Should(Equal(walk.KindDirectoryUnopenable))
		case scanengine.ErrorOccurred:
			rootFailed = append(rootFailed, e.Root)
		}
	}

	g.Expect(walkFailed).Should(Equal([]string{"/root/sub"}))
	g.Expect(rootFailed).Should(Equal([]string{"missing"}))
	g.Expect(engine.GetStatus().Failures).Should(Equal(2))
}

func TestEngine_ProgressEvents(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mfs := filesystem.NewMockFileSystem()
	for i := range scanengine.ProgressInterval * 2 {
		mfs.AddFile(fmt.Sprintf("/root/f%03d", i), nil, time.Now())
	}

	log := &eventLog{}

	engine := scanengine.NewEngine([]string{"big"}, walk.DefaultOptions())
	engine.Open = mockOpener(map[string]*filesystem.MockFileSystem{"big": mfs})
	engine.SetEventEmitter(log)

	_, err := engine.Run(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	var visited []int

	for _, event := range log.all() {
		if progress, ok := event.(scanengine.ScanProgress); ok {
			visited = append(visited, progress.Visited)
		}
	}

	g.Expect(visited).Should(Equal([]int{scanengine.ProgressInterval, scanengine.ProgressInterval * 2}))
}

func TestEngine_CancelStopsTheScan(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mfs := sampleTree()

	var engine *scanengine.Engine

	engine = scanengine.NewEngine([]string{"only"}, walk.DefaultOptions())
	engine.Open = mockOpener(map[string]*filesystem.MockFileSystem{"only": mfs})
	engine.SetEventEmitter(scanengine.EmitterFunc(func(event scanengine.Event) {
		if _, ok := event.(scanengine.DirectoryEntered); ok {
			engine.Cancel()
		}
	}))

	result, err := engine.Run(context.Background())
	g.Expect(err).Should(MatchError(scanengine.ErrScanCancelled))
	g.Expect(result.Roots[0].Err).Should(MatchError(scanengine.ErrScanCancelled))
	g.Expect(result.Roots[0].Files).Should(BeZero())

	opened, closed := mfs.HandleStats()
	g.Expect(closed).Should(Equal(opened))
}

func TestEngine_Misuse(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := scanengine.NewEngine(nil, walk.DefaultOptions()).Run(context.Background())
	g.Expect(err).Should(MatchError(scanengine.ErrNoRoots))

	engine := scanengine.NewEngine([]string{"only"}, walk.DefaultOptions())
	engine.Open = mockOpener(map[string]*filesystem.MockFileSystem{"only": sampleTree()})

	_, err = engine.Run(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())

	_, err = engine.Run(context.Background())
	g.Expect(err).Should(MatchError(scanengine.ErrAlreadyStarted))

	bad := scanengine.NewEngine([]string{"only"}, walk.Options{MaxDepth: -1})
	bad.Open = mockOpener(map[string]*filesystem.MockFileSystem{"only": sampleTree()})

	result, err := bad.Run(context.Background())
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(result.Roots[0].Err).Should(MatchError(walk.ErrInvalidDepth))
	g.Expect(errors.Is(result.Roots[0].Err, walk.ErrInvalidDepth)).Should(BeTrue())
}
