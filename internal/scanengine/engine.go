// Package scanengine runs walks over one or more roots concurrently and
// reports what it sees as events, for the CLI and the TUI.
package scanengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joe/treewalk/pkg/filesystem"
	"github.com/joe/treewalk/pkg/walk"
)

// Exported constants.
const (
	// DefaultWorkers is how many roots are walked at once by default.
	DefaultWorkers = 4
	// ProgressInterval is how many visited nodes pass between ScanProgress events.
	ProgressInterval = 100
)

// Exported variables.
var (
	ErrNoRoots        = errors.New("no roots to scan")
	ErrScanCancelled  = errors.New("scan cancelled")
	ErrAlreadyStarted = errors.New("engine already started")
)

// OpenFunc resolves a root into a provider, the root as that provider
// names it, and a closer. filesystem.CreateFileSystem is the default.
type OpenFunc func(ctx context.Context, root string) (filesystem.FileSystem, string, func(), error)

// Engine scans roots. Each root gets its own walker; walkers share nothing,
// so roots are walked in parallel up to Workers at a time.
type Engine struct {
	Roots        []string
	Options      walk.Options
	Filter       FileFilter // Optional; nil reports everything
	Workers      int
	Pool         *filesystem.PoolConfig
	Logger       *slog.Logger
	TimeProvider TimeProvider
	Open         OpenFunc

	emitter EventEmitter
	status  *statusTracker

	mu      sync.Mutex
	started bool
	cancel  context.CancelCauseFunc
}

// NewEngine creates an engine for the given roots with default settings.
func NewEngine(roots []string, opts walk.Options) *Engine {
	return &Engine{
		Roots:        roots,
		Options:      opts,
		Workers:      DefaultWorkers,
		TimeProvider: &RealTimeProvider{},
		status:       &statusTracker{},
	}
}

// SetEventEmitter sets the event emitter. Nil disables events.
func (e *Engine) SetEventEmitter(emitter EventEmitter) {
	e.emitter = emitter
}

// Cancel stops a running scan. Walks stop at their next event and close
// their directories; Run returns ErrScanCancelled.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel(ErrScanCancelled)
	}
}

// GetStatus returns a snapshot of the running totals.
func (e *Engine) GetStatus() Status {
	if e.status == nil {
		return Status{}
	}

	return e.status.snapshot(e.now())
}

// Run scans every root and returns the per-root summaries. A root that
// cannot be opened is reported in its summary and does not stop the others.
// The returned error is reserved for cancellation and misuse.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if len(e.Roots) == 0 {
		return nil, ErrNoRoots
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil, ErrAlreadyStarted
	}

	e.started = true
	e.cancel = cancel

	if e.status == nil {
		e.status = &statusTracker{}
	}
	e.mu.Unlock()

	runID := uuid.New()
	log := e.logger().With("run", runID.String())
	start := e.now()

	e.status.begin(runID, len(e.Roots), start)
	e.emit(RunStarted{RunID: runID, Roots: e.Roots})
	log.Debug("scan started", "roots", len(e.Roots), "workers", e.workers())

	summaries := make([]RootSummary, len(e.Roots))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.workers())

	for i, root := range e.Roots {
		group.Go(func() error {
			summaries[i] = e.scanRoot(groupCtx, root, log)

			return context.Cause(groupCtx)
		})
	}

	waitErr := group.Wait()

	result := &Result{
		RunID:    runID,
		Roots:    summaries,
		Duration: e.now().Sub(start),
	}

	e.status.finish(e.now())
	e.emit(RunComplete{Result: result})
	log.Debug("scan finished", "duration", result.Duration, "failures", result.FailureCount())

	if waitErr != nil {
		return result, fmt.Errorf("%w: %w", ErrScanCancelled, waitErr)
	}

	return result, nil
}

func (e *Engine) emit(event Event) {
	if e.emitter != nil {
		e.emitter.Emit(event)
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return e.Logger
}

func (e *Engine) now() time.Time {
	if e.TimeProvider == nil {
		return time.Now()
	}

	return e.TimeProvider.Now()
}

func (e *Engine) open(ctx context.Context, root string) (filesystem.FileSystem, string, func(), error) {
	if e.Open != nil {
		return e.Open(ctx, root)
	}

	return filesystem.CreateFileSystem(ctx, root, e.Pool)
}

// resizePool matches a pooled provider's connection count to one walk.
func (e *Engine) resizePool(fsys filesystem.FileSystem) {
	if resizable, ok := fsys.(filesystem.ResizablePool); ok {
		resizable.ResizePool(resizable.PoolMinSize())
	}
}

// scanRoot walks one root to completion or cancellation.
func (e *Engine) scanRoot(ctx context.Context, root string, log *slog.Logger) RootSummary {
	summary := RootSummary{Root: root, Backend: backendName(root)}
	log = log.With("root", root)

	defer func() {
		e.status.rootDone(summary)
		e.emit(ScanComplete{Summary: summary})
	}()

	if ctx.Err() != nil {
		summary.Err = context.Cause(ctx)
		return summary
	}

	fsys, base, closer, err := e.open(ctx, root)
	if err != nil {
		summary.Err = fmt.Errorf("failed to open %s: %w", root, err)
		log.Warn("root unavailable", "error", err)
		e.emit(ErrorOccurred{Root: root, Err: summary.Err})

		return summary
	}
	defer closer()

	e.resizePool(fsys)

	opts := e.Options
	if opts.Logger == nil {
		opts.Logger = log
	}

	walker, err := walk.New(fsys, base, opts)
	if err != nil {
		summary.Err = err
		e.emit(ErrorOccurred{Root: root, Err: err})

		return summary
	}

	defer func() {
		_ = walker.Close()
	}()

	e.emit(ScanStarted{Root: root, Backend: summary.Backend})

	match := Matcher(e.Filter, base)

	for {
		if ctx.Err() != nil {
			summary.Err = context.Cause(ctx)
			return summary
		}

		ev, ok := walker.Next()
		if !ok {
			return summary
		}

		e.record(root, ev, match, &summary)
	}
}

// record folds one walk event into the summary, the status and the event stream.
func (e *Engine) record(root string, ev walk.Event, match func(string, os.FileInfo) bool, summary *RootSummary) {
	if ev.Err != nil {
		summary.Failures = append(summary.Failures, ev.Err)
		e.status.failed(ev.Path)
		e.emit(WalkFailed{Root: root, Path: ev.Path, Depth: ev.Depth, Kind: walk.KindOf(ev.Err), Err: ev.Err})

		return
	}

	switch ev.Kind {
	case walk.EventStartDirectory:
		e.emit(DirectoryEntered{Root: root, Path: ev.Path, Depth: ev.Depth})
	case walk.EventEndDirectory:
		e.emit(DirectoryLeft{Root: root, Path: ev.Path, Depth: ev.Depth})
		return
	case walk.EventEntry:
	}

	summary.Visited++
	summary.Deepest = max(summary.Deepest, ev.Depth)

	if summary.Visited%ProgressInterval == 0 {
		e.emit(ScanProgress{Root: root, Visited: summary.Visited})
	}

	if !match(ev.Path, ev.Info) {
		return
	}

	isLink := ev.Info.Mode()&os.ModeSymlink != 0

	switch {
	case ev.Info.IsDir():
		summary.Directories++
	case isLink:
		summary.Symlinks++
	default:
		summary.Files++
		summary.Bytes += ev.Info.Size()
	}

	e.status.visited(ev.Path, ev.Info)
	e.emit(EntryVisited{
		Root:   root,
		Path:   ev.Path,
		Depth:  ev.Depth,
		Size:   ev.Info.Size(),
		IsDir:  ev.Info.IsDir(),
		IsLink: isLink,
	})
}

func (e *Engine) workers() int {
	if e.Workers < 1 {
		return 1
	}

	return e.Workers
}

func backendName(root string) string {
	parsed, err := filesystem.ParsePath(root)
	if err != nil {
		return filesystem.BackendLocal.String()
	}

	return parsed.Backend.String()
}
