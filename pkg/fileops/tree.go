package fileops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/joe/treewalk/pkg/filesystem"
	"github.com/joe/treewalk/pkg/walk"
)

// CopyOptions configures CopyTree.
type CopyOptions struct {
	// Walk controls depth and link following on the source side. Directories
	// at the depth limit are created empty.
	Walk walk.Options
	// SkipUnchanged leaves destination files with the same size and
	// modification time alone.
	SkipUnchanged bool
	// Verify re-reads every copied file and compares it with the source.
	Verify bool
	// StopOnError ends the copy at the first failure instead of recording
	// it and carrying on.
	StopOnError bool
	Progress    ProgressCallback
}

// TreeStats summarizes a tree operation.
type TreeStats struct {
	CopyStats

	Directories int
	Files       int
	// Skipped counts unchanged files and nodes that are neither regular
	// files nor directories (links when not following, devices, sockets).
	Skipped  int
	Failures []error
}

// Err joins the recorded failures, or returns nil.
func (s *TreeStats) Err() error {
	return errors.Join(s.Failures...)
}

// UsageReport is what Usage found under a root.
type UsageReport struct {
	Directories int
	Files       int
	Symlinks    int
	Other       int
	Bytes       int64
	Deepest     int
	Failures    []error
}

// CopyTree copies the tree at srcRoot on the source filesystem to dstRoot on
// the destination filesystem. Directories are created on the way down and
// get their modification times back on the way up. Failures on individual
// nodes are recorded in the stats; the returned error is reserved for
// cancellation and, with StopOnError, the first failure. A destination at
// or below srcRoot in the same storage is rejected with
// ErrDestinationInsideSource before anything is written.
func (fo *FileOps) CopyTree(ctx context.Context, srcRoot, dstRoot string, opts CopyOptions) (TreeStats, error) {
	var (
		stats    TreeStats
		dirTimes []time.Time
	)

	if fo.sharesStorage() && within(fo.SourceFS, srcRoot, dstRoot) {
		return stats, fmt.Errorf("%w: %s is under %s", ErrDestinationInsideSource, dstRoot, srcRoot)
	}

	dstFS := fo.destFS()
	log := fo.logger().With("op", "copy", "source", srcRoot, "dest", dstRoot)
	target := func(path string) string {
		return dstFS.Join(append([]string{dstRoot}, relativeParts(srcRoot, path)...)...)
	}

	fail := func(err error) (walk.Signal, error) {
		log.Debug("copy failure", "error", err)

		if opts.StopOnError {
			return walk.Terminate, err
		}

		stats.Failures = append(stats.Failures, err)

		return walk.Continue, nil
	}

	mkdir := func(path string) error {
		err := dstFS.MkdirAll(target(path), DefaultDirPermissions)
		if err != nil {
			return fmt.Errorf("failed to create directory %s: %w", target(path), err)
		}

		stats.Directories++

		return nil
	}

	visitor := walk.VisitorFuncs{
		PreVisit: func(path string, info fs.FileInfo) (walk.Signal, error) {
			err := checkCancellation(ctx)
			if err != nil {
				return walk.Terminate, err
			}

			err = mkdir(path)
			if err != nil {
				sig, err := fail(err)
				if sig == walk.Continue {
					sig = walk.SkipSubtree
				}

				return sig, err
			}

			dirTimes = append(dirTimes, info.ModTime())

			return walk.Continue, nil
		},
		Entry: func(path string, info fs.FileInfo, err error) (walk.Signal, error) {
			cancelErr := checkCancellation(ctx)
			if cancelErr != nil {
				return walk.Terminate, cancelErr
			}

			if err != nil {
				return fail(err)
			}

			switch {
			case info.IsDir():
				err = mkdir(path)
			case info.Mode().IsRegular():
				err = fo.copyEntry(ctx, path, target(path), info, opts, &stats)
			default:
				log.Debug("skipping non-regular entry", "path", path, "mode", info.Mode().String())
				stats.Skipped++
			}

			if err != nil {
				if errors.Is(err, ErrCopyCancelled) {
					return walk.Terminate, err
				}

				return fail(err)
			}

			return walk.Continue, nil
		},
		PostVisit: func(path string, err error) (walk.Signal, error) {
			mtime := dirTimes[len(dirTimes)-1]
			dirTimes = dirTimes[:len(dirTimes)-1]

			if err != nil {
				return fail(err)
			}

			err = dstFS.Chtimes(target(path), mtime, mtime)
			if err != nil && !errors.Is(err, filesystem.ErrUnsupported) {
				return fail(fmt.Errorf("failed to preserve modification time for %s: %w", target(path), err))
			}

			return walk.Continue, nil
		},
	}

	err := walk.Walk(fo.SourceFS, srcRoot, opts.Walk, visitor)
	if err != nil {
		return stats, fmt.Errorf("failed to copy %s to %s: %w", srcRoot, dstRoot, err)
	}

	return stats, nil
}

// RemoveTree deletes root and everything under it, children before their
// directory. Links are removed, never followed. Nodes that cannot be
// removed are recorded and the rest of the tree is still attempted.
func (fo *FileOps) RemoveTree(ctx context.Context, root string) (TreeStats, error) {
	var stats TreeStats

	log := fo.logger().With("op", "remove", "root", root)
	remove := func(path string) error {
		err := fo.SourceFS.Remove(path)
		if err != nil {
			log.Debug("remove failed", "path", path, "error", err)
			stats.Failures = append(stats.Failures, fmt.Errorf("failed to remove %s: %w", path, err))
		}

		return err
	}

	visitor := walk.VisitorFuncs{
		PreVisit: func(string, fs.FileInfo) (walk.Signal, error) {
			return walk.Continue, checkCancellation(ctx)
		},
		Entry: func(path string, _ fs.FileInfo, err error) (walk.Signal, error) {
			cancelErr := checkCancellation(ctx)
			if cancelErr != nil {
				return walk.Terminate, cancelErr
			}

			if err != nil {
				stats.Failures = append(stats.Failures, err)
				return walk.Continue, nil
			}

			if remove(path) == nil {
				stats.Files++
			}

			return walk.Continue, nil
		},
		PostVisit: func(path string, err error) (walk.Signal, error) {
			if err != nil {
				stats.Failures = append(stats.Failures, err)
			}

			if remove(path) == nil {
				stats.Directories++
			}

			return walk.Continue, nil
		},
	}

	err := walk.Walk(fo.SourceFS, root, walk.DefaultOptions(), visitor)
	if err != nil {
		return stats, fmt.Errorf("failed to remove %s: %w", root, err)
	}

	return stats, nil
}

// Usage counts nodes and bytes under root. Failures are recorded, not
// returned; the error is for cancellation and invalid options only.
func (fo *FileOps) Usage(ctx context.Context, root string, opts walk.Options) (UsageReport, error) {
	var report UsageReport

	count := func(depth int, info fs.FileInfo) {
		report.Deepest = max(report.Deepest, depth)

		switch mode := info.Mode(); {
		case mode.IsDir():
			report.Directories++
		case mode.IsRegular():
			report.Files++
			report.Bytes += info.Size()
		case mode&os.ModeSymlink != 0:
			report.Symlinks++
		default:
			report.Other++
		}
	}

	walker, err := walk.New(fo.SourceFS, root, opts)
	if err != nil {
		return report, err //nolint:wrapcheck // option validation names its own problem
	}

	defer func() {
		_ = walker.Close()
	}()

	for {
		err := checkCancellation(ctx)
		if err != nil {
			return report, err
		}

		ev, ok := walker.Next()
		if !ok {
			return report, nil
		}

		switch {
		case ev.Err != nil:
			report.Failures = append(report.Failures, ev.Err)
		case ev.Kind != walk.EventEndDirectory:
			count(ev.Depth, ev.Info)
		}
	}
}

// copyEntry copies one regular file, honouring SkipUnchanged and Verify.
func (fo *FileOps) copyEntry(
	ctx context.Context,
	src, dst string,
	info fs.FileInfo,
	opts CopyOptions,
	stats *TreeStats,
) error {
	if opts.SkipUnchanged {
		existing, err := fo.destFS().Stat(dst)
		if err == nil && existing.Size() == info.Size() && existing.ModTime().Equal(info.ModTime()) {
			stats.Skipped++
			return nil
		}
	}

	copied, err := fo.CopyFile(ctx, src, dst, opts.Progress)
	stats.add(copied)

	if err != nil {
		return err
	}

	if opts.Verify {
		same, err := fo.CompareFiles(src, dst)
		if err != nil {
			return err
		}

		if !same {
			return fmt.Errorf("%w: %s", ErrContentDiffers, dst)
		}
	}

	stats.Files++

	return nil
}

// sharesStorage reports whether source and destination name the same
// storage, so that writes to one can show up in a walk of the other.
func (fo *FileOps) sharesStorage() bool {
	dst := fo.destFS()
	if dst == fo.SourceFS {
		return true
	}

	_, srcLocal := fo.SourceFS.(*filesystem.RealFileSystem)
	_, dstLocal := dst.(*filesystem.RealFileSystem)

	return srcLocal && dstLocal
}

// within reports whether target is root or lies below it.
func within(fsys filesystem.FileSystem, root, target string) bool {
	if _, local := fsys.(*filesystem.RealFileSystem); local {
		absRoot, rootErr := filepath.Abs(root)
		absTarget, targetErr := filepath.Abs(target)

		if rootErr == nil && targetErr == nil {
			root, target = absRoot, absTarget
		}
	}

	root = path.Clean(filepath.ToSlash(root))
	target = path.Clean(filepath.ToSlash(target))

	return target == root || strings.HasPrefix(target, strings.TrimSuffix(root, "/")+"/")
}

// relativeParts splits the part of path below root into its elements.
// Both separators are accepted so paths can move between providers.
func relativeParts(root, path string) []string {
	rest := strings.TrimPrefix(path, root)

	return strings.FieldsFunc(rest, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}
