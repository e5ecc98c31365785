package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Poller configuration
	Poller PollerConfig

	// Blur defaults, used until settings are stored
	Blur BlurConfig

	// Overlay surface configuration
	Overlay OverlayConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Control API configuration
	Web WebConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite settings database
}

// PollerConfig holds poll loop configuration
type PollerConfig struct {
	CheckInterval    time.Duration // How often to check the cursor
	MinCheckInterval time.Duration // Minimum allowed check interval
	MaxCheckInterval time.Duration // Maximum allowed check interval
}

// BlurConfig holds the initial blur state
type BlurConfig struct {
	Enabled bool
	Opacity float64 // 0..1
	Color   string  // One of the names known to the control surface
}

// OverlayConfig holds overlay surface rendering configuration
type OverlayConfig struct {
	FadeDuration  time.Duration // Duration of a blur/clear transition
	FrameInterval time.Duration // Fade loop frame interval
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile        string        // Path to PID file for daemon management
	LogFile        string        // Log destination when running detached
	HandoffTimeout time.Duration // How long a relaunched instance waits for its predecessor
}

// WebConfig holds control API configuration
type WebConfig struct {
	Host string // Host to bind the control API to
	Port int    // Port for the control API
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/screenblur/screenblur.db
		},
		Poller: PollerConfig{
			CheckInterval:    100 * time.Millisecond,
			MinCheckInterval: 10 * time.Millisecond,
			MaxCheckInterval: 5 * time.Second,
		},
		Blur: BlurConfig{
			Enabled: true,
			Opacity: 0.7,
			Color:   "black",
		},
		Overlay: OverlayConfig{
			FadeDuration:  300 * time.Millisecond,
			FrameInterval: 16 * time.Millisecond, // ~60 FPS
		},
		Daemon: DaemonConfig{
			PIDFile:        fmt.Sprintf("/tmp/screenblur-%d.pid", os.Getuid()),
			LogFile:        fmt.Sprintf("/tmp/screenblur-%d.log", os.Getuid()),
			HandoffTimeout: 3 * time.Second,
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 18000 + os.Getuid()%10000, // Per-user default port
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate poller intervals
	if c.Poller.CheckInterval < c.Poller.MinCheckInterval {
		return fmt.Errorf("check interval (%v) cannot be less than minimum (%v)",
			c.Poller.CheckInterval, c.Poller.MinCheckInterval)
	}

	if c.Poller.CheckInterval > c.Poller.MaxCheckInterval {
		return fmt.Errorf("check interval (%v) cannot be greater than maximum (%v)",
			c.Poller.CheckInterval, c.Poller.MaxCheckInterval)
	}

	// Validate blur defaults
	if c.Blur.Opacity < 0 || c.Blur.Opacity > 1 {
		return fmt.Errorf("opacity must be between 0 and 1, got %v", c.Blur.Opacity)
	}

	if c.Blur.Color == "" {
		return fmt.Errorf("blur color cannot be empty")
	}

	// Validate overlay config
	if c.Overlay.FadeDuration < 0 {
		return fmt.Errorf("fade duration cannot be negative")
	}

	if c.Overlay.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive")
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Daemon.HandoffTimeout < 0 {
		return fmt.Errorf("handoff timeout cannot be negative")
	}

	return nil
}

// SetCheckInterval sets the check interval with validation
func (c *Config) SetCheckInterval(interval time.Duration) error {
	if err := c.CheckIntervalAllowed(interval); err != nil {
		return err
	}
	c.Poller.CheckInterval = interval
	return nil
}

// CheckIntervalAllowed validates interval against the configured bounds
func (c *Config) CheckIntervalAllowed(interval time.Duration) error {
	if interval < c.Poller.MinCheckInterval {
		return fmt.Errorf("check interval cannot be less than %v", c.Poller.MinCheckInterval)
	}
	if interval > c.Poller.MaxCheckInterval {
		return fmt.Errorf("check interval cannot be greater than %v", c.Poller.MaxCheckInterval)
	}
	return nil
}

// SetWebPort sets the control API port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Address returns the control API listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Poller:
    Check Interval: %v
    Min Interval: %v
    Max Interval: %v
  Blur:
    Enabled: %v
    Opacity: %.2f
    Color: %s
  Overlay:
    Fade Duration: %v
    Frame Interval: %v
  Daemon:
    PID File: %s
    Log File: %s
    Handoff Timeout: %v
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		c.Poller.CheckInterval,
		c.Poller.MinCheckInterval,
		c.Poller.MaxCheckInterval,
		c.Blur.Enabled,
		c.Blur.Opacity,
		c.Blur.Color,
		c.Overlay.FadeDuration,
		c.Overlay.FrameInterval,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Daemon.HandoffTimeout,
		c.Web.Host,
		c.Web.Port,
	)
}
