package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/treewalk/internal/config"
	"github.com/joe/treewalk/internal/scanengine"
	"github.com/joe/treewalk/internal/tui"
	"github.com/joe/treewalk/internal/tui/shared"
	"github.com/joe/treewalk/pkg/errors"
	"github.com/joe/treewalk/pkg/fileops"
	"github.com/joe/treewalk/pkg/filesystem"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailures = 1
	exitFatal    = 2
)

// app runs one invocation of the CLI.
type app struct {
	cfg      *config.Config
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
	enricher errors.Enricher
	terminal bool

	mu       sync.Mutex
	failures int
	advised  map[errors.ErrorCategory]bool
}

func newApp(cfg *config.Config, stdout, stderr io.Writer) *app {
	level := slog.LevelInfo
	if cfg != nil && cfg.Verbose {
		level = slog.LevelDebug
	}

	return &app{
		cfg:      cfg,
		stdout:   stdout,
		stderr:   stderr,
		logger:   slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		enricher: errors.NewEnricher(),
		advised:  make(map[errors.ErrorCategory]bool),
	}
}

func (a *app) withTerminal(terminal bool) *app {
	a.terminal = terminal
	return a
}

// run dispatches on the configuration and returns the exit code.
func (a *app) run(ctx context.Context) int {
	var err error

	switch {
	case a.cfg.CopyTo != "":
		err = a.copyTree(ctx)
	case a.cfg.Remove:
		err = a.removeTrees(ctx)
	case a.cfg.Interactive && a.terminal:
		err = a.live(ctx)
	case a.cfg.Interactive:
		a.logger.Warn("stdout is not a terminal; printing usage instead of the live view")
		err = a.usage(ctx)
	case a.cfg.Mode == config.ModeUsage:
		err = a.usage(ctx)
	default:
		err = a.print(ctx)
	}

	if err != nil {
		a.fatal(err)
		return exitFatal
	}

	if a.failures > 0 {
		a.logger.Info("finished with failures", "count", a.failures)
		return exitFailures
	}

	return exitOK
}

// report prints one node failure, with suggestions the first time its
// category is seen.
func (a *app) report(err error, path string) {
	enriched := a.enricher.Enrich(err, path)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.failures++
	fmt.Fprintf(a.stderr, "Error: %v\n", enriched)

	actionable, ok := enriched.(errors.ActionableError) //nolint:errorlint // Enrich returns actionable errors directly
	if !ok || a.advised[actionable.Category()] {
		return
	}

	a.advised[actionable.Category()] = true

	if suggestions := errors.FormatSuggestions(enriched); suggestions != "" {
		fmt.Fprintln(a.stderr, suggestions)
	}
}

// fatal prints an error that ends the run.
func (a *app) fatal(err error) {
	enriched := a.enricher.Enrich(err, "")
	fmt.Fprintf(a.stderr, "Error: %v\n", enriched)

	if suggestions := errors.FormatSuggestions(enriched); suggestions != "" {
		fmt.Fprintln(a.stderr, suggestions)
	}
}

func (a *app) newEngine() (*scanengine.Engine, error) {
	engine := scanengine.NewEngine(a.cfg.Roots, a.walkOptions())
	engine.Workers = a.cfg.Workers
	engine.Pool = a.cfg.Pool
	engine.Logger = a.logger

	filter, err := a.filter()
	if err != nil {
		return nil, err
	}

	if filter != nil {
		engine.Filter = filter
	}

	return engine, nil
}

func (a *app) filter() (*scanengine.GlobFilter, error) {
	if a.cfg.Match == "" {
		return nil, nil //nolint:nilnil // No filter means report everything
	}

	filter, err := scanengine.NewGlobFilter(a.cfg.Match)
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern: %w", err)
	}

	return filter, nil
}

func (a *app) live(ctx context.Context) error {
	engine, err := a.newEngine()
	if err != nil {
		return err
	}

	result, err := tui.Run(ctx, engine, tea.WithAltScreen())
	if result != nil {
		a.printUsage(result)
	}

	return err
}

func (a *app) usage(ctx context.Context) error {
	engine, err := a.newEngine()
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx)
	if result != nil {
		a.printUsage(result)
	}

	return err
}

func (a *app) copyTree(ctx context.Context) error {
	root := a.cfg.Roots[0]

	srcFS, dstFS, srcPath, dstPath, closer, err := filesystem.CreateFileSystemPair(ctx, root, a.cfg.CopyTo, a.cfg.Pool)
	if err != nil {
		return err //nolint:wrapcheck // Already says which side failed
	}
	defer closer()

	ops := fileops.NewDualFileOps(srcFS, dstFS)
	ops.Logger = a.logger

	stats, err := ops.CopyTree(ctx, srcPath, dstPath, fileops.CopyOptions{
		Walk:          a.walkOptions(),
		SkipUnchanged: a.cfg.SkipUnchanged,
		Verify:        a.cfg.Verify,
	})

	for _, failure := range stats.Failures {
		a.report(failure, "")
	}

	fmt.Fprintf(a.stdout, "copied %d files (%s) into %d directories, %d skipped\n",
		stats.Files, shared.FormatBytes(stats.BytesCopied), stats.Directories, stats.Skipped)

	if err != nil {
		return fmt.Errorf("copy to %s stopped: %w", a.cfg.CopyTo, err)
	}

	return nil
}

func (a *app) removeTrees(ctx context.Context) error {
	for _, root := range a.cfg.Roots {
		fsys, base, closer, err := filesystem.CreateFileSystem(ctx, root, a.cfg.Pool)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", root, err)
		}

		stats, err := fileops.NewFileOps(fsys).RemoveTree(ctx, base)

		closer()

		for _, failure := range stats.Failures {
			a.report(failure, "")
		}

		fmt.Fprintf(a.stdout, "%s: removed %d files and %d directories\n", root, stats.Files, stats.Directories)

		if err != nil {
			return fmt.Errorf("remove %s stopped: %w", root, err)
		}
	}

	return nil
}
