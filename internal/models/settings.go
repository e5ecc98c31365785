package models

import (
	"time"
)

// SettingsID is the primary key of the single settings row
const SettingsID = 1

type Settings struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Enabled         bool      `gorm:"not null" json:"enabled"`
	Opacity         float64   `gorm:"not null" json:"opacity"`
	CheckIntervalMs int64     `gorm:"not null" json:"check_interval_ms"` // 0 means use the configured interval
	Color           string    `gorm:"not null" json:"color"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CheckInterval returns the stored interval, zero if unset
func (s *Settings) CheckInterval() time.Duration {
	return time.Duration(s.CheckIntervalMs) * time.Millisecond
}
