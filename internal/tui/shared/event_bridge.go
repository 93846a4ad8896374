package shared

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/treewalk/internal/scanengine"
)

// bridgeBuffer bounds how far the engine can run ahead of the view.
const bridgeBuffer = 256

// EngineEventMsg wraps a scanengine.Event for use as a tea.Msg.
type EngineEventMsg struct {
	Event scanengine.Event
}

// EventBridge adapts scanengine events to bubble tea messages.
// It implements scanengine.EventEmitter and is safe for concurrent Emit.
//
// Per-node events are dropped when the buffer is full; the view only
// samples them. Run and root lifecycle events always get through unless
// the bridge is closed.
type EventBridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		events: make(chan tea.Msg, bridgeBuffer),
		done:   make(chan struct{}),
	}
}

// Close stops delivery. Pending and future Emit calls return immediately.
func (b *EventBridge) Close() {
	b.once.Do(func() { close(b.done) })
}

// Emit implements scanengine.EventEmitter.
func (b *EventBridge) Emit(event scanengine.Event) {
	msg := EngineEventMsg{Event: event}

	if isLifecycle(event) {
		select {
		case b.events <- msg:
		case <-b.done:
		}

		return
	}

	select {
	case b.events <- msg:
	case <-b.done:
	default:
	}
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// Issue it again after handling each EngineEventMsg.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// Subscribe returns the event channel for receiving events.
func (b *EventBridge) Subscribe() <-chan tea.Msg {
	return b.events
}

func isLifecycle(event scanengine.Event) bool {
	switch event.(type) {
	case scanengine.RunStarted, scanengine.RunComplete,
		scanengine.ScanStarted, scanengine.ScanComplete, scanengine.ErrorOccurred:
		return true
	default:
		return false
	}
}
