package shared

import "github.com/charmbracelet/lipgloss"

// Exported constants.
const (
	// DefaultPadding is the horizontal padding inside the view's box
	DefaultPadding = 2
	// TickIntervalMs is how often the view polls the engine's status
	TickIntervalMs = 100
	// ProgressEllipsisLength is the length of the ellipsis in truncated paths
	ProgressEllipsisLength = 3
	// RecentActivity is how many visited paths the view keeps
	RecentActivity = 8
	// RecentFailures is how many failures the view keeps
	RecentFailures = 5

	// KeyCtrlC is the key binding for cancellation
	KeyCtrlC = "ctrl+c"
)

// PrimaryColor is the color of the title and the spinner.
func PrimaryColor() lipgloss.Color { return lipgloss.Color(primaryColorCode) }

// RenderBox frames the whole view.
func RenderBox(content string) string {
	return boxStyle.Render(content)
}

// RenderDim renders secondary text such as the current directory.
func RenderDim(text string) string {
	return dimStyle.Render(text)
}

// RenderError renders failures and the failed marker.
func RenderError(text string) string {
	return errorStyle.Render(text)
}

// RenderLabel renders root names and the totals label.
func RenderLabel(text string) string {
	return labelStyle.Render(text)
}

// RenderSuccess renders the done marker.
func RenderSuccess(text string) string {
	return successStyle.Render(text)
}

// RenderTitle renders the view's title.
func RenderTitle(text string) string {
	return titleStyle.Render(text)
}

// RenderWarning renders failure counts and the cancelling notice.
func RenderWarning(text string) string {
	return warningStyle.Render(text)
}

// unexported constants.
const (
	accentColorCode    = "62"  // Blue
	dimColorCode       = "240" // Dark gray
	errorColorCode     = "196" // Red
	highlightColorCode = "86"  // Cyan
	primaryColorCode   = "205" // Pink/purple
	successColorCode   = "42"  // Green
	warningColorCode   = "226"
)

//nolint:gochecknoglobals // Styles are immutable values
var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(accentColorCode)).
			Padding(1, DefaultPadding)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(dimColorCode))
	errorStyle   = boldIn(errorColorCode)
	labelStyle   = boldIn(highlightColorCode)
	successStyle = boldIn(successColorCode)
	titleStyle   = boldIn(primaryColorCode).MarginBottom(1)
	warningStyle = boldIn(warningColorCode)
)

func boldIn(code string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(code)).Bold(true)
}
