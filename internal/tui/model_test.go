package tui

import (
	"errors"
	"io/fs"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/joe/treewalk/internal/scanengine"
	"github.com/joe/treewalk/internal/tui/shared"
	"github.com/joe/treewalk/pkg/walk"
)

// fakeScanner records cancellation and serves a fixed status.
type fakeScanner struct {
	cancelled int
	status    scanengine.Status
}

func (f *fakeScanner) Cancel() { f.cancelled++ }

func (f *fakeScanner) GetStatus() scanengine.Status { return f.status }

func send(model AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	updated, cmd := model.Update(msg)

	next, ok := updated.(AppModel)
	Expect(ok).To(BeTrue())

	return next, cmd
}

func event(e scanengine.Event) shared.EngineEventMsg {
	return shared.EngineEventMsg{Event: e}
}

var _ = Describe("AppModel", func() {
	var (
		scanner *fakeScanner
		bridge  *shared.EventBridge
		model   AppModel
	)

	BeforeEach(func() {
		scanner = &fakeScanner{}
		bridge = shared.NewEventBridge()
		DeferCleanup(bridge.Close)
		model = NewAppModel([]string{"/src", "sftp://me@host/data"}, scanner, bridge)
	})

	Describe("initial state", func() {
		It("has one row per root, in order", func() {
			Expect(model.rows).To(HaveLen(2))
			Expect(model.rows[0].root).To(Equal("/src"))
			Expect(model.rows[1].root).To(Equal("sftp://me@host/data"))
		})

		It("is not done", func() {
			Expect(model.Done()).To(BeFalse())
		})

		It("starts listening, ticking and spinning", func() {
			Expect(model.Init()).NotTo(BeNil())
		})

		It("renders every root", func() {
			view := model.View()
			Expect(view).To(ContainSubstring("/src"))
			Expect(view).To(ContainSubstring("sftp://me@host/data"))
			Expect(view).To(ContainSubstring("q to cancel"))
		})
	})

	Describe("engine events", func() {
		It("keeps listening after each event", func() {
			_, cmd := send(model, event(scanengine.ScanStarted{Root: "/src", Backend: "local"}))
			Expect(cmd).NotTo(BeNil())
		})

		It("records the backend and the current directory", func() {
			model, _ = send(model, event(scanengine.ScanStarted{Root: "/src", Backend: "local"}))
			model, _ = send(model, event(scanengine.DirectoryEntered{Root: "/src", Path: "/src/deep/dir", Depth: 2}))

			Expect(model.rows[0].backend).To(Equal("local"))
			Expect(model.View()).To(ContainSubstring("/src/deep/dir"))
		})

		It("tracks visited files but not directories in the activity log", func() {
			model, _ = send(model, event(scanengine.EntryVisited{Root: "/src", Path: "/src/a.txt", Depth: 1}))
			model, _ = send(model, event(scanengine.EntryVisited{Root: "/src", Path: "/src/sub", Depth: 1, IsDir: true}))

			Expect(model.activity.Lines()).To(Equal([]string{"/src/a.txt"}))
		})

		It("keeps the highest progress count", func() {
			model, _ = send(model, event(scanengine.ScanProgress{Root: "/src", Visited: 200}))
			model, _ = send(model, event(scanengine.ScanProgress{Root: "/src", Visited: 100}))

			Expect(model.rows[0].visited).To(Equal(200))
			Expect(model.View()).To(ContainSubstring("200 visited"))
		})

		It("lists failures with their kind", func() {
			model, _ = send(model, event(scanengine.WalkFailed{
				Root: "/src", Path: "/src/locked", Depth: 1,
				Kind: walk.KindDirectoryUnopenable, Err: fs.ErrPermission,
			}))

			Expect(model.rows[0].failures).To(Equal(1))
			Expect(model.View()).To(ContainSubstring("directory unopenable: /src/locked"))
		})

		It("shows per-root totals once a root completes", func() {
			model, _ = send(model, event(scanengine.ScanComplete{Summary: scanengine.RootSummary{
				Root: "/src", Visited: 9, Directories: 2, Files: 6, Symlinks: 1, Bytes: 2048,
			}}))

			Expect(model.rows[0].summary).NotTo(BeNil())
			Expect(model.View()).To(ContainSubstring("2 dirs, 6 files, 1 links, 2.0 KB"))
		})

		It("marks roots that could not be opened", func() {
			model, _ = send(model, event(scanengine.ErrorOccurred{
				Root: "sftp://me@host/data", Err: errors.New("connection refused"),
			}))

			Expect(model.rows[1].err).To(HaveOccurred())
			Expect(model.View()).To(ContainSubstring("connection refused"))
		})

		It("adds rows for roots it was not told about", func() {
			model, _ = send(model, event(scanengine.ScanStarted{Root: "mem:///extra", Backend: "memory"}))
			Expect(model.rows).To(HaveLen(3))
		})
	})

	Describe("keys", func() {
		It("cancels the scan once on q", func() {
			model, _ = send(model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
			model, _ = send(model, tea.KeyMsg{Type: tea.KeyCtrlC})

			Expect(scanner.cancelled).To(Equal(1))
			Expect(model.cancelling).To(BeTrue())
			Expect(model.View()).To(ContainSubstring("Cancelling"))
		})

		It("quits on q after the scan has finished", func() {
			model.done = true

			_, cmd := send(model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
			Expect(cmd).NotTo(BeNil())
			Expect(cmd()).To(Equal(tea.Quit()))
			Expect(scanner.cancelled).To(BeZero())
		})
	})

	Describe("finishing", func() {
		It("quits and shows the outcome", func() {
			scanner.status = scanengine.Status{TotalRoots: 2, RootsDone: 2, Entries: 42, Bytes: 4096}

			model, cmd := send(model, shared.ScanFinishedMsg{Result: &scanengine.Result{Duration: 3 * time.Second}})

			Expect(model.Done()).To(BeTrue())
			Expect(cmd()).To(Equal(tea.Quit()))

			view := model.View()
			Expect(view).To(ContainSubstring("Scan complete"))
			Expect(view).To(ContainSubstring("42 entries"))
			Expect(view).To(ContainSubstring("in 3s"))
		})

		It("reports a cancelled scan", func() {
			model, _ = send(model, shared.ScanFinishedMsg{Err: scanengine.ErrScanCancelled})
			Expect(model.View()).To(ContainSubstring("Stopped: scan cancelled"))
		})

		It("stops ticking once done", func() {
			model.done = true

			_, cmd := send(model, shared.TickMsg(time.Now()))
			Expect(cmd).To(BeNil())
		})

		It("refreshes the status on each tick while running", func() {
			scanner.status = scanengine.Status{Entries: 7}

			model, cmd := send(model, shared.TickMsg(time.Now()))
			Expect(cmd).NotTo(BeNil())
			Expect(model.status.Entries).To(Equal(7))
		})
	})
})
