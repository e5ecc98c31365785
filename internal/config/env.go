package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("SCREENBLUR_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Poller configuration, in milliseconds
	if checkInterval := os.Getenv("SCREENBLUR_CHECK_INTERVAL"); checkInterval != "" {
		if ms, err := strconv.Atoi(checkInterval); err == nil && ms > 0 {
			interval := time.Duration(ms) * time.Millisecond
			if interval >= cfg.Poller.MinCheckInterval && interval <= cfg.Poller.MaxCheckInterval {
				cfg.Poller.CheckInterval = interval
			}
		}
	}

	// Blur defaults
	if enabled := os.Getenv("SCREENBLUR_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			cfg.Blur.Enabled = val
		}
	}

	if opacity := os.Getenv("SCREENBLUR_OPACITY"); opacity != "" {
		if val, err := strconv.ParseFloat(opacity, 64); err == nil && val >= 0 && val <= 1 {
			cfg.Blur.Opacity = val
		}
	}

	if color := os.Getenv("SCREENBLUR_COLOR"); color != "" {
		cfg.Blur.Color = color
	}

	// Overlay configuration, in milliseconds
	if fade := os.Getenv("SCREENBLUR_FADE_MS"); fade != "" {
		if ms, err := strconv.Atoi(fade); err == nil && ms >= 0 {
			cfg.Overlay.FadeDuration = time.Duration(ms) * time.Millisecond
		}
	}

	// Daemon configuration
	if pidFile := os.Getenv("SCREENBLUR_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("SCREENBLUR_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}

	// Web configuration
	if webHost := os.Getenv("SCREENBLUR_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("SCREENBLUR_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
