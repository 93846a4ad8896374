package shared_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/treewalk/internal/scanengine"
	"github.com/joe/treewalk/internal/tui/shared"
)

func TestEventBridge_ImplementsEventEmitter(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	var emitter scanengine.EventEmitter = bridge
	g.Expect(emitter).ToNot(BeNil())
}

func TestEventBridge_ListenCmdDeliversInOrder(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	bridge.Emit(scanengine.ScanStarted{Root: "/a"})
	bridge.Emit(scanengine.EntryVisited{Root: "/a", Path: "/a/x"})

	first, ok := bridge.ListenCmd()().(shared.EngineEventMsg)
	g.Expect(ok).To(BeTrue())
	g.Expect(first.Event).To(Equal(scanengine.ScanStarted{Root: "/a"}))

	second, ok := bridge.ListenCmd()().(shared.EngineEventMsg)
	g.Expect(ok).To(BeTrue())
	g.Expect(second.Event).To(Equal(scanengine.EntryVisited{Root: "/a", Path: "/a/x"}))
}

func TestEventBridge_DropsNodeEventsWhenFull(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	for range 1000 {
		bridge.Emit(scanengine.EntryVisited{Root: "/a"})
	}

	g.Expect(len(bridge.Subscribe())).To(BeNumerically("<", 1000))
}

func TestEventBridge_LifecycleEventsWaitForRoom(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()
	defer bridge.Close()

	for range 1000 {
		bridge.Emit(scanengine.EntryVisited{Root: "/a"})
	}

	sent := make(chan struct{})

	go func() {
		bridge.Emit(scanengine.ScanComplete{Summary: scanengine.RootSummary{Root: "/a"}})
		close(sent)
	}()

	g.Consistently(sent, 50*time.Millisecond).ShouldNot(BeClosed())

	drainedToComplete := func() bool {
		for {
			select {
			case msg := <-bridge.Subscribe():
				if _, ok := msg.(shared.EngineEventMsg).Event.(scanengine.ScanComplete); ok {
					return true
				}
			default:
				return false
			}
		}
	}

	g.Eventually(drainedToComplete).Should(BeTrue())
	g.Eventually(sent).Should(BeClosed())
}

func TestEventBridge_CloseReleasesBlockedCallers(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	bridge := shared.NewEventBridge()

	for range 1000 {
		bridge.Emit(scanengine.EntryVisited{Root: "/a"})
	}

	sent := make(chan struct{})

	go func() {
		bridge.Emit(scanengine.RunComplete{})
		close(sent)
	}()

	bridge.Close()
	bridge.Close()

	g.Eventually(sent).Should(BeClosed())
}
