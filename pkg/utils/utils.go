package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders seconds in the largest whole unit: 42s, 5m, 2h
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%dh", seconds/3600)
	}
	return fmt.Sprintf("%dm", seconds/60)
}

// FormatAgo renders the time elapsed since t, e.g. "5m ago"
func FormatAgo(t, now time.Time) string {
	return FormatRoundedUnit(int64(now.Sub(t).Seconds())) + " ago"
}

// FormatPercent renders a 0..1 fraction as a whole percentage
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.0f%%", fraction*100)
}
