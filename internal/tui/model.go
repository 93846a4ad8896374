package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joe/treewalk/internal/scanengine"
	"github.com/joe/treewalk/internal/tui/shared"
)

// Scanner is the part of scanengine.Engine the view drives.
type Scanner interface {
	Cancel()
	GetStatus() scanengine.Status
}

// rootRow is what the view knows about one root.
type rootRow struct {
	root     string
	backend  string
	current  string
	visited  int
	failures int
	summary  *scanengine.RootSummary
	err      error
}

// AppModel is the live scan view.
type AppModel struct {
	rows     []*rootRow
	byRoot   map[string]*rootRow
	scanner  Scanner
	bridge   *shared.EventBridge
	spinner  spinner.Model
	activity *shared.ActivityLog
	failures *shared.ActivityLog
	status   scanengine.Status
	result   *scanengine.Result
	err      error

	cancelling bool
	done       bool
	width      int
}

// NewAppModel creates the view for the given roots.
func NewAppModel(roots []string, scanner Scanner, bridge *shared.EventBridge) AppModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(shared.PrimaryColor())

	model := AppModel{
		byRoot:   make(map[string]*rootRow, len(roots)),
		scanner:  scanner,
		bridge:   bridge,
		spinner:  spin,
		activity: shared.NewActivityLog(shared.RecentActivity),
		failures: shared.NewActivityLog(shared.RecentFailures),
	}

	for _, root := range roots {
		row := &rootRow{root: root}
		model.rows = append(model.rows, row)
		model.byRoot[root] = row
	}

	return model
}

// Done reports whether the scan has finished.
func (m AppModel) Done() bool {
	return m.done
}

// Init implements tea.Model
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.bridge.ListenCmd(),
		shared.TickCmd(),
	)
}

// Update implements tea.Model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		return m.handleKey(msg)
	case shared.EngineEventMsg:
		m.apply(msg.Event)
		return m, m.bridge.ListenCmd()
	case shared.ScanFinishedMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		m.status = m.scanner.GetStatus()

		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case shared.TickMsg:
		if m.done {
			return m, nil
		}

		m.status = m.scanner.GetStatus()

		return m, shared.TickCmd()
	}

	return m, nil
}

func (m *AppModel) apply(event scanengine.Event) {
	switch e := event.(type) {
	case scanengine.ScanStarted:
		m.row(e.Root).backend = e.Backend
	case scanengine.DirectoryEntered:
		m.row(e.Root).current = e.Path
	case scanengine.EntryVisited:
		if !e.IsDir {
			m.activity.Add(e.Path)
		}
	case scanengine.ScanProgress:
		row := m.row(e.Root)
		row.visited = max(row.visited, e.Visited)
	case scanengine.WalkFailed:
		m.row(e.Root).failures++
		m.failures.Add(e.Kind.String() + ": " + e.Path)
	case scanengine.ErrorOccurred:
		m.row(e.Root).err = e.Err
	case scanengine.ScanComplete:
		summary := e.Summary
		row := m.row(summary.Root)
		row.summary = &summary
		row.visited = summary.Visited
		row.failures = len(summary.Failures)
		row.current = ""

		if summary.Err != nil {
			row.err = summary.Err
		}
	}
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case shared.KeyCtrlC, "q", "esc":
		if m.done {
			return m, tea.Quit
		}

		if !m.cancelling {
			m.cancelling = true
			m.scanner.Cancel()
		}
	}

	return m, nil
}

func (m *AppModel) row(root string) *rootRow {
	row, ok := m.byRoot[root]
	if !ok {
		row = &rootRow{root: root}
		m.rows = append(m.rows, row)
		m.byRoot[root] = row
	}

	return row
}
