package models

import (
	"time"

	"gorm.io/gorm"
)

type RestartEvent struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"not null;index" json:"timestamp"`
	Reason       string         `gorm:"not null" json:"reason"`
	MonitorCount int            `gorm:"not null;default:0" json:"monitor_count"` // After the change, 0 if unknown
	PID          int            `gorm:"not null" json:"pid"`
	ChildPID     int            `gorm:"not null;default:0" json:"child_pid"` // 0 when the relaunch failed
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
