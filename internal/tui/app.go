// Package tui shows a live view of a scan while the engine walks its roots.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/treewalk/internal/scanengine"
	"github.com/joe/treewalk/internal/tui/shared"
)

// Run shows the live view while engine scans, and returns the engine's
// result once both the scan and the view have finished.
func Run(ctx context.Context, engine *scanengine.Engine, opts ...tea.ProgramOption) (*scanengine.Result, error) {
	bridge := shared.NewEventBridge()
	defer bridge.Close()

	engine.SetEventEmitter(bridge)

	program := tea.NewProgram(
		NewAppModel(engine.Roots, engine, bridge),
		append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...,
	)

	var (
		result *scanengine.Result
		runErr error
	)

	done := make(chan struct{})

	go func() {
		defer close(done)

		result, runErr = engine.Run(ctx)
		program.Send(shared.ScanFinishedMsg{Result: result, Err: runErr})
	}()

	if _, err := program.Run(); err != nil {
		engine.Cancel()
		bridge.Close()
		<-done

		if errors.Is(err, tea.ErrProgramKilled) && runErr != nil {
			return result, runErr
		}

		return result, fmt.Errorf("live view failed: %w", err)
	}

	<-done

	return result, runErr
}
