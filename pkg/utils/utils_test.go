package utils

import (
	"testing"
	"time"
)

func TestFormatRoundedUnit(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h"},
		{7300, "2h"},
		{-90, "1m"},
	}

	for _, tt := range tests {
		if got := FormatRoundedUnit(tt.seconds); got != tt.want {
			t.Errorf("FormatRoundedUnit(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := FormatAgo(now.Add(-5*time.Minute), now); got != "5m ago" {
		t.Errorf("FormatAgo() = %q, want %q", got, "5m ago")
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(0.7); got != "70%" {
		t.Errorf("FormatPercent(0.7) = %q", got)
	}
}
