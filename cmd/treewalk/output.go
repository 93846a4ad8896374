package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/joe/treewalk/internal/config"
	"github.com/joe/treewalk/internal/scanengine"
	"github.com/joe/treewalk/internal/tui/shared"
	"github.com/joe/treewalk/pkg/filesystem"
	"github.com/joe/treewalk/pkg/walk"
)

func (a *app) walkOptions() walk.Options {
	opts := a.cfg.WalkOptions()
	opts.Logger = a.logger

	return opts
}

// print walks each root in turn, streaming output in the configured mode.
func (a *app) print(ctx context.Context) error {
	filter, err := a.filter()
	if err != nil {
		return err
	}

	for _, root := range a.cfg.Roots {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("walk cancelled: %w", context.Cause(ctx))
		}

		fsys, base, closer, err := filesystem.CreateFileSystem(ctx, root, a.cfg.Pool)
		if err != nil {
			a.report(fmt.Errorf("failed to open %s: %w", root, err), root)
			continue
		}

		var fileFilter scanengine.FileFilter
		if filter != nil {
			fileFilter = filter
		}

		match := scanengine.Matcher(fileFilter, base)

		switch a.cfg.Mode {
		case config.ModeEvents:
			err = a.printEvents(ctx, fsys, base, match)
		case config.ModeTree:
			err = a.printTree(ctx, fsys, base, match)
		default:
			err = a.printPaths(ctx, fsys, base, match)
		}

		closer()

		if err != nil {
			return err
		}
	}

	return nil
}

func (a *app) printPaths(ctx context.Context, fsys filesystem.FileSystem, root string, match func(string, fs.FileInfo) bool) error {
	for entry, err := range walk.Find(fsys, root, a.walkOptions(), match) {
		if err != nil {
			if walk.KindOf(err) == 0 {
				return fmt.Errorf("walk of %s failed: %w", root, err)
			}

			a.report(err, entry.Path)

			continue
		}

		fmt.Fprintln(a.stdout, entry.Path)

		if ctx.Err() != nil {
			return fmt.Errorf("walk cancelled: %w", context.Cause(ctx))
		}
	}

	return nil
}

func (a *app) printEvents(ctx context.Context, fsys filesystem.FileSystem, root string, match func(string, fs.FileInfo) bool) error {
	walker, err := walk.New(fsys, root, a.walkOptions())
	if err != nil {
		return fmt.Errorf("walk of %s failed: %w", root, err)
	}
	defer func() {
		_ = walker.Close()
	}()

	for {
		if ctx.Err() != nil {
			return fmt.Errorf("walk cancelled: %w", context.Cause(ctx))
		}

		ev, ok := walker.Next()
		if !ok {
			return nil
		}

		switch {
		case ev.Err != nil:
			fmt.Fprintf(a.stdout, "%-15s %d %s [%s]\n", ev.Kind, ev.Depth, ev.Path, walk.KindOf(ev.Err))
			a.report(ev.Err, ev.Path)
		case ev.Kind == walk.EventEntry && !match(ev.Path, ev.Info):
		default:
			fmt.Fprintf(a.stdout, "%-15s %d %s\n", ev.Kind, ev.Depth, ev.Path)
		}
	}
}

func (a *app) printTree(ctx context.Context, fsys filesystem.FileSystem, root string, match func(string, fs.FileInfo) bool) error {
	depth := 0
	line := func(name string) {
		fmt.Fprintf(a.stdout, "%s%s\n", strings.Repeat("  ", depth), name)
	}

	visitor := walk.VisitorFuncs{
		PreVisit: func(path string, info fs.FileInfo) (walk.Signal, error) {
			if depth == 0 {
				line(path)
			} else {
				line(info.Name() + "/")
			}

			depth++

			return walk.Continue, ctx.Err()
		},
		Entry: func(path string, info fs.FileInfo, err error) (walk.Signal, error) {
			if err != nil {
				line(baseName(path) + " !")
				a.report(err, path)

				return walk.Continue, nil
			}

			if !match(path, info) {
				return walk.Continue, nil
			}

			line(treeName(info))

			return walk.Continue, ctx.Err()
		},
		PostVisit: func(path string, err error) (walk.Signal, error) {
			depth--

			if err != nil {
				a.report(err, path)
			}

			return walk.Continue, nil
		},
	}

	if err := walk.Walk(fsys, root, a.walkOptions(), visitor); err != nil {
		return fmt.Errorf("walk of %s failed: %w", root, err)
	}

	return nil
}

// baseName is the last element of a slash or backslash separated path.
func baseName(path string) string {
	trimmed := strings.TrimRight(path, `/\`)
	if trimmed == "" {
		return path
	}

	return trimmed[strings.LastIndexAny(trimmed, `/\`)+1:]
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, scanengine.ErrScanCancelled)
}

// treeName renders a leaf: directories not descended into get a slash and
// links reported as leaves an at sign.
func treeName(info fs.FileInfo) string {
	switch {
	case info.IsDir():
		return info.Name() + "/"
	case info.Mode()&fs.ModeSymlink != 0:
		return info.Name() + "@"
	default:
		return info.Name()
	}
}

// printUsage prints one row per root and a total row, then reports failures.
func (a *app) printUsage(result *scanengine.Result) {
	usage := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ROOT", "BACKEND", "DIRS", "FILES", "LINKS", "SIZE", "DEPTH", "FAILED")

	for _, summary := range result.Roots {
		usage.Row(usageRow(summary)...)

		if summary.Err != nil && !cancelled(summary.Err) {
			a.report(summary.Err, summary.Root)
		}

		for _, failure := range summary.Failures {
			a.report(failure, "")
		}
	}

	if len(result.Roots) > 1 {
		total := result.Totals()
		total.Root = "total"
		usage.Row(usageRow(total)...)
	}

	fmt.Fprintln(a.stdout, usage.String())
	fmt.Fprintf(a.stdout, "run %s took %s\n", result.RunID, shared.FormatDuration(result.Duration))
}

func usageRow(summary scanengine.RootSummary) []string {
	return []string{
		summary.Root,
		summary.Backend,
		strconv.Itoa(summary.Directories),
		strconv.Itoa(summary.Files),
		strconv.Itoa(summary.Symlinks),
		shared.FormatBytes(summary.Bytes),
		strconv.Itoa(summary.Deepest),
		strconv.Itoa(len(summary.Failures)),
	}
}
