package scanengine

import (
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RootSummary is the outcome of scanning one root. Counts cover reported
// nodes only (those passing the filter); Visited covers every node.
type RootSummary struct {
	Root        string
	Backend     string
	Visited     int
	Directories int
	Files       int
	Symlinks    int
	Bytes       int64
	Deepest     int
	Failures    []error
	// Err is set when the root could not be walked at all, or the walk was cancelled.
	Err error
}

// Result is the outcome of a run.
type Result struct {
	RunID    uuid.UUID
	Roots    []RootSummary
	Duration time.Duration
}

// FailureCount counts node failures and unusable roots.
func (r *Result) FailureCount() int {
	count := 0

	for _, summary := range r.Roots {
		count += len(summary.Failures)

		if summary.Err != nil {
			count++
		}
	}

	return count
}

// Totals sums the per-root summaries.
func (r *Result) Totals() RootSummary {
	var total RootSummary

	for _, summary := range r.Roots {
		total.Visited += summary.Visited
		total.Directories += summary.Directories
		total.Files += summary.Files
		total.Symlinks += summary.Symlinks
		total.Bytes += summary.Bytes
		total.Deepest = max(total.Deepest, summary.Deepest)
		total.Failures = append(total.Failures, summary.Failures...)
	}

	return total
}

// Status represents the running totals of a scan.
type Status struct {
	RunID       uuid.UUID
	TotalRoots  int
	RootsDone   int
	Entries     int
	Bytes       int64
	Failures    int
	CurrentPath string
	StartTime   time.Time
	EndTime     time.Time

	// EntriesPerSecond is computed when the snapshot is taken.
	EntriesPerSecond float64
}

// statusTracker guards the running status of one engine.
type statusTracker struct {
	mu     sync.Mutex
	status Status
}

func (t *statusTracker) begin(runID uuid.UUID, roots int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.RunID = runID
	t.status.TotalRoots = roots
	t.status.StartTime = now
}

func (t *statusTracker) failed(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Failures++
	t.status.CurrentPath = path
}

func (t *statusTracker) finish(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.EndTime = now
}

func (t *statusTracker) rootDone(summary RootSummary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.RootsDone++

	if summary.Err != nil {
		t.status.Failures++
	}
}

// snapshot copies the status and fills in the rate.
func (t *statusTracker) snapshot(now time.Time) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.status

	end := now
	if !snap.EndTime.IsZero() {
		end = snap.EndTime
	}

	if elapsed := end.Sub(snap.StartTime).Seconds(); elapsed > 0 && !snap.StartTime.IsZero() {
		snap.EntriesPerSecond = float64(snap.Entries) / elapsed
	}

	return snap
}

func (t *statusTracker) visited(path string, info fs.FileInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Entries++
	t.status.CurrentPath = path

	if info.Mode().IsRegular() {
		t.status.Bytes += info.Size()
	}
}
