package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/joe/treewalk/internal/tui/shared"
)

const (
	minPathWidth     = 20
	defaultPathWidth = 60
)

// View implements tea.Model
func (m AppModel) View() string {
	var content strings.Builder

	content.WriteString(shared.RenderTitle("treewalk"))
	content.WriteString("\n")

	for _, row := range m.rows {
		content.WriteString(m.renderRow(row))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(m.renderTotals())

	if lines := m.activity.Lines(); len(lines) > 0 && !m.done {
		content.WriteString("\n\n")
		content.WriteString(shared.RenderActivityLog("Recent", m.truncated(lines), shared.RecentActivity))
	}

	if lines := m.failures.Lines(); len(lines) > 0 {
		content.WriteString("\n\n")
		content.WriteString(shared.RenderActivityLog("Failures", m.truncated(lines), shared.RecentFailures))
	}

	content.WriteString("\n\n")
	content.WriteString(m.renderFooter())

	return shared.RenderBox(content.String()) + "\n"
}

func (m AppModel) pathWidth() int {
	if m.width == 0 {
		return defaultPathWidth
	}

	return max(m.width-2*shared.DefaultPadding-10, minPathWidth)
}

func (m AppModel) renderFooter() string {
	switch {
	case m.done && m.err != nil:
		return shared.RenderError("Stopped: " + m.err.Error())
	case m.done:
		return shared.RenderSuccess("Scan complete")
	case m.cancelling:
		return shared.RenderWarning("Cancelling...")
	default:
		return shared.RenderDim("q to cancel")
	}
}

func (m AppModel) renderRow(row *rootRow) string {
	var marker string

	switch {
	case row.err != nil:
		marker = shared.RenderError("✗")
	case row.summary != nil:
		marker = shared.RenderSuccess("✓")
	default:
		marker = m.spinner.View()
	}

	line := fmt.Sprintf("%s %s", marker, shared.RenderLabel(row.root))
	if row.backend != "" {
		line += shared.RenderDim(" (" + row.backend + ")")
	}

	switch {
	case row.summary != nil:
		line += fmt.Sprintf("  %d dirs, %d files, %d links, %s",
			row.summary.Directories, row.summary.Files, row.summary.Symlinks,
			shared.FormatBytes(row.summary.Bytes))
	case row.visited > 0:
		line += fmt.Sprintf("  %d visited", row.visited)
	}

	if row.failures > 0 {
		line += shared.RenderWarning(fmt.Sprintf("  %d failed", row.failures))
	}

	if row.err != nil && row.summary == nil {
		line += "\n    " + shared.RenderError(row.err.Error())
	}

	if row.current != "" {
		line += "\n    " + shared.RenderDim(shared.TruncatePath(row.current, m.pathWidth()))
	}

	return line
}

func (m AppModel) renderTotals() string {
	status := m.status

	elapsed := ""

	switch {
	case m.result != nil:
		elapsed = " in " + shared.FormatDuration(m.result.Duration)
	case !status.StartTime.IsZero():
		elapsed = " in " + shared.FormatDuration(time.Since(status.StartTime))
	}

	return fmt.Sprintf("%s %d entries, %s, %s%s",
		shared.RenderLabel(fmt.Sprintf("Roots %d/%d:", status.RootsDone, max(status.TotalRoots, len(m.rows)))),
		status.Entries,
		shared.FormatBytes(status.Bytes),
		shared.FormatRate(status.EntriesPerSecond),
		elapsed,
	)
}

func (m AppModel) truncated(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = shared.TruncatePath(line, m.pathWidth())
	}

	return out
}
