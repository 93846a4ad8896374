package shared

import (
	"strings"
)

// ActivityLog keeps the most recent lines of activity, oldest first.
type ActivityLog struct {
	lines []string
	limit int
}

// NewActivityLog creates a log holding at most limit lines.
func NewActivityLog(limit int) *ActivityLog {
	return &ActivityLog{limit: max(limit, 1)}
}

// Add appends a line, dropping the oldest once the log is full.
func (l *ActivityLog) Add(line string) {
	l.lines = append(l.lines, line)

	if over := len(l.lines) - l.limit; over > 0 {
		l.lines = append(l.lines[:0], l.lines[over:]...)
	}
}

// Lines returns the retained lines, oldest first.
func (l *ActivityLog) Lines() []string {
	return l.lines
}

// RenderActivityLog renders entries under an optional title, showing only
// the most recent maxEntries when maxEntries > 0.
func RenderActivityLog(title string, entries []string, maxEntries int) string {
	var builder strings.Builder

	if trimmed := strings.TrimSpace(title); trimmed != "" {
		builder.WriteString(RenderLabel(trimmed))
		builder.WriteString("\n")
	}

	if maxEntries > 0 && maxEntries < len(entries) {
		entries = entries[len(entries)-maxEntries:]
	}

	for i, entry := range entries {
		if i > 0 {
			builder.WriteString("\n")
		}

		builder.WriteString("  ")
		builder.WriteString(entry)
	}

	return builder.String()
}
