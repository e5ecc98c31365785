package models

import (
	"time"

	"screenblur/pkg/display"
)

type MonitorStatus struct {
	Index      int            `json:"index"`
	Bounds     display.Bounds `json:"bounds"`
	Focused    bool           `json:"focused"`
	Blurred    bool           `json:"blurred"`
	HasOverlay bool           `json:"has_overlay"`
}

type StatusReport struct {
	Running       bool            `json:"running"`
	PID           int             `json:"pid,omitempty"`
	DisplayServer string          `json:"display_server"`
	Phase         string          `json:"phase"`
	Enabled       bool            `json:"enabled"`
	Opacity       float64         `json:"opacity"`
	Color         string          `json:"color"`
	CheckInterval string          `json:"check_interval"`
	Ticks         uint64          `json:"ticks"`
	FocusedIndex  int             `json:"focused_index"`
	Cursor        display.Point   `json:"cursor"`
	Monitors      []MonitorStatus `json:"monitors"`
	Overlays      int             `json:"overlays"`
	LastError     string          `json:"last_error,omitempty"`
	LastRestart   *RestartEvent   `json:"last_restart,omitempty"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
