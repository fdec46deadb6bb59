package main

import (
	"fmt"
	"time"

	"github.com/automatix-sh/automatix/internal/models"
)

// truncate shortens s to max characters, appending "..." when cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// formatRunDuration renders a run's wall time, or "-" while it is still
// running.
func formatRunDuration(run models.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return formatDuration(run.FinishedAt.Sub(run.StartedAt))
}

// formatDuration renders a duration compactly: 1.2s, 3m05s, 1h02m.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
