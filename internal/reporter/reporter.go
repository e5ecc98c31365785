package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"screenblur/internal/control"
	"screenblur/internal/models"
	"screenblur/internal/tracker"
	"screenblur/pkg/utils"
)

// Engine exposes the poll loop's last result
type Engine interface {
	Status() tracker.Status
}

// History supplies the restart log
type History interface {
	GetLatestRestart() (*models.RestartEvent, error)
}

// Reporter handles status report generation
type Reporter struct {
	history       History
	displayServer string
}

// New creates a new reporter. history may be nil.
func New(history History, displayServer string) *Reporter {
	return &Reporter{
		history:       history,
		displayServer: displayServer,
	}
}

// GenerateStatus combines the engine's last tick with the control state.
// A nil engine produces a report for a stopped daemon.
func (r *Reporter) GenerateStatus(engine Engine, view control.View) (*models.StatusReport, error) {
	report := &models.StatusReport{
		DisplayServer: r.displayServer,
		Phase:         "stopped",
		Enabled:       view.Enabled,
		Opacity:       view.Opacity,
		Color:         view.Color,
		CheckInterval: (time.Duration(view.IntervalMs) * time.Millisecond).String(),
		Monitors:      []models.MonitorStatus{},
		GeneratedAt:   time.Now(),
	}

	if engine != nil {
		st := engine.Status()
		report.Running = true
		report.PID = os.Getpid()
		report.Phase = st.Phase.String()
		report.Ticks = st.Ticks
		report.FocusedIndex = st.Focused
		report.Cursor = st.Cursor
		report.Monitors = MonitorStatuses(st)
		report.Overlays = st.Overlays
		report.LastError = st.LastError
	}

	if r.history != nil {
		last, err := r.history.GetLatestRestart()
		if err != nil {
			return nil, fmt.Errorf("failed to get latest restart: %w", err)
		}
		report.LastRestart = last
	}

	return report, nil
}

// MonitorStatuses lists the monitors of the last tick with their focus and overlay state
func MonitorStatuses(st tracker.Status) []models.MonitorStatus {
	out := make([]models.MonitorStatus, 0, len(st.Monitors))
	for _, m := range st.Monitors {
		pushed, ok := st.Pushed[m.Index]
		out = append(out, models.MonitorStatus{
			Index:      m.Index,
			Bounds:     m.Bounds,
			Focused:    m.Index == st.Focused,
			Blurred:    ok && pushed.Blurred,
			HasOverlay: ok,
		})
	}
	return out
}

// FormatStatusText formats the report as human-readable text
func (r *Reporter) FormatStatusText(report *models.StatusReport) string {
	var b strings.Builder

	if report.Running {
		fmt.Fprintf(&b, "Daemon: running (PID %d, %s)\n", report.PID, report.Phase)
	} else {
		b.WriteString("Daemon: not running\n")
	}
	fmt.Fprintf(&b, "Display Server: %s\n", report.DisplayServer)

	enabled := "off"
	if report.Enabled {
		enabled = "on"
	}
	fmt.Fprintf(&b, "Blur: %s, opacity %s, color %s\n", enabled, utils.FormatPercent(report.Opacity), report.Color)
	fmt.Fprintf(&b, "Check Interval: %s\n", report.CheckInterval)

	if report.Running {
		fmt.Fprintf(&b, "Ticks: %d\n", report.Ticks)
		fmt.Fprintf(&b, "Cursor: %d,%d\n", report.Cursor.X, report.Cursor.Y)
		fmt.Fprintf(&b, "Overlays: %d\n\n", report.Overlays)
		b.WriteString(FormatMonitorsText(report.Monitors))
	}

	if report.LastError != "" {
		fmt.Fprintf(&b, "\nLast Error: %s\n", report.LastError)
	}

	if report.LastRestart != nil {
		fmt.Fprintf(&b, "\nLast Restart: %s (%s)\n",
			utils.FormatAgo(report.LastRestart.Timestamp, report.GeneratedAt),
			report.LastRestart.Reason)
	}

	return b.String()
}

// FormatMonitorsText renders a monitor table
func FormatMonitorsText(monitors []models.MonitorStatus) string {
	if len(monitors) == 0 {
		return "No monitors detected.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-6s %-24s %-8s %-8s %-8s\n", "Index", "Geometry", "Focused", "Blurred", "Overlay")
	b.WriteString(strings.Repeat("-", 58) + "\n")

	for _, m := range monitors {
		geometry := fmt.Sprintf("%dx%d+%d+%d", m.Bounds.Width, m.Bounds.Height, m.Bounds.X, m.Bounds.Y)
		fmt.Fprintf(&b, "%-6d %-24s %-8s %-8s %-8s\n",
			m.Index, truncate(geometry, 24), yesNo(m.Focused), yesNo(m.Blurred), yesNo(m.HasOverlay))
	}

	return b.String()
}

// FormatRestartsText renders the restart history, newest first
func FormatRestartsText(events []*models.RestartEvent, now time.Time) string {
	if len(events) == 0 {
		return "No restarts recorded.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-10s %-18s %-9s %-8s %-8s\n", "Time", "Ago", "Reason", "Monitors", "PID", "Child")
	b.WriteString(strings.Repeat("-", 78) + "\n")

	for _, ev := range events {
		child := fmt.Sprintf("%d", ev.ChildPID)
		if ev.Error != "" {
			child = "failed"
		}
		fmt.Fprintf(&b, "%-20s %-10s %-18s %-9d %-8d %-8s\n",
			ev.Timestamp.Format("2006-01-02 15:04:05"),
			utils.FormatAgo(ev.Timestamp, now),
			truncate(ev.Reason, 18),
			ev.MonitorCount,
			ev.PID,
			child)
	}

	return b.String()
}

// FormatStatusJSON formats the report as JSON
func (r *Reporter) FormatStatusJSON(report *models.StatusReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
