// Package main is the entry point for the treewalk application.
package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/treewalk/internal/config"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		newApp(cfg, os.Stdout, os.Stderr).fatal(err)
		os.Exit(exitFatal)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	code := newApp(cfg, os.Stdout, os.Stderr).
		withTerminal(term.IsTerminal(int(os.Stdout.Fd()))).
		run(ctx)

	stop()
	os.Exit(code)
}
