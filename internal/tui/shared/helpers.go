package shared

import (
	"fmt"
	"time"
)

// FormatBytes formats bytes into human-readable format (e.g., "1.5 MB")
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats duration into human-readable format (e.g., "2m 30s")
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)
	hours := duration / time.Hour
	duration %= time.Hour
	minutes := duration / time.Minute
	duration %= time.Minute
	seconds := duration / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// FormatRate formats a node rate (e.g., "1.2k entries/s")
func FormatRate(perSecond float64) string {
	if perSecond < 1000 {
		return fmt.Sprintf("%.0f entries/s", perSecond)
	}

	return fmt.Sprintf("%.1fk entries/s", perSecond/1000)
}

// TruncatePath shortens a path to width runes, keeping its tail.
func TruncatePath(path string, width int) string {
	runes := []rune(path)
	if width <= ProgressEllipsisLength || len(runes) <= width {
		return path
	}

	return "..." + string(runes[len(runes)-width+ProgressEllipsisLength:])
}
