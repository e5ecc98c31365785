package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"screenblur/internal/blur"
	"screenblur/internal/config"
	"screenblur/internal/control"
	"screenblur/internal/daemon"
	"screenblur/internal/database"
	"screenblur/internal/focus"
	"screenblur/internal/models"
	"screenblur/internal/reporter"
	"screenblur/internal/tracker"
	"screenblur/internal/web"
	"screenblur/pkg/detector"
	"screenblur/pkg/display"
	"screenblur/pkg/utils"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

// historyRetention bounds how long error logs and restart events are kept
const historyRetention = 30 * 24 * time.Hour

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "start":
		startDaemon()
	case "run":
		runForeground()
	case "stop":
		stopDaemon()
	case "status":
		showStatus()
	case "monitors":
		showMonitors()
	case "restarts":
		showRestarts()
	case "clear":
		clearHistory()
	case "enable":
		applyControl(func(c controller) (control.View, error) {
			enabled := true
			return c.Apply(control.Patch{Enabled: &enabled})
		})
	case "disable":
		applyControl(func(c controller) (control.View, error) {
			enabled := false
			return c.Apply(control.Patch{Enabled: &enabled})
		})
	case "toggle":
		applyControl(func(c controller) (control.View, error) {
			return c.Toggle()
		})
	case "opacity":
		opacity, err := control.ParseOpacity(requireArg("opacity <0..1 | 0..100%>"))
		if err != nil {
			log.Fatalf("Invalid opacity: %v", err)
		}
		applyControl(func(c controller) (control.View, error) {
			return c.Apply(control.Patch{Opacity: &opacity})
		})
	case "color":
		name := requireArg("color <" + strings.Join(control.ColorNames(), "|") + ">")
		applyControl(func(c controller) (control.View, error) {
			return c.Apply(control.Patch{Color: &name})
		})
	case "interval":
		d, err := parseInterval(requireArg("interval <duration>"))
		if err != nil {
			log.Fatalf("Invalid interval: %v", err)
		}
		ms := d.Milliseconds()
		applyControl(func(c controller) (control.View, error) {
			return c.Apply(control.Patch{IntervalMs: &ms})
		})
	case "version":
		fmt.Printf("screenblur version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`screenblur - Dim every monitor except the one under the cursor

Usage:
  screenblur <command> [options]

Commands:
  start              Start the daemon in the background
  run                Run the daemon in the foreground
  stop               Stop the daemon
  status [--json]    Show daemon status and blur settings
  monitors [--watch] Show detected monitors and which one has focus
  restarts [n]       Show the last n topology restarts (default 10)
  clear              Clear error and restart history
  enable             Turn blurring on
  disable            Turn blurring off
  toggle             Toggle blurring
  opacity <value>    Set overlay opacity (0..1 or 0..100%%)
  color <name>       Set overlay color (%s)
  interval <dur>     Set the cursor check interval (e.g. 100ms)
  version            Show version information
  help               Show this help message

Examples:
  screenblur start
  screenblur opacity 60%%
  screenblur color darkgray
  screenblur toggle
  screenblur status --json
  screenblur stop

Environment Variables:
  SCREENBLUR_DB_PATH          Database file path
  SCREENBLUR_CHECK_INTERVAL   Check interval in milliseconds (10-5000)
  SCREENBLUR_ENABLED          Initial blur state (true/false)
  SCREENBLUR_OPACITY          Initial opacity (0..1)
  SCREENBLUR_COLOR            Initial color
  SCREENBLUR_FADE_MS          Fade duration in milliseconds
  SCREENBLUR_PID_FILE         PID file path
  SCREENBLUR_LOG_FILE         Log file used by the background daemon
  SCREENBLUR_WEB_HOST         Control API host
  SCREENBLUR_WEB_PORT         Control API port

Version: %s
`, strings.Join(control.ColorNames(), ", "), version)
}

func loadConfig() *config.Config {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// checkNotRunning exits if another instance owns the PID file. The
// predecessor of a relaunched instance is still exiting and does not count.
func checkNotRunning(dm *daemon.Daemon) {
	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running && pid != daemon.PredecessorPID() {
		log.Fatalf("Daemon is already running (PID: %d)", pid)
	}
}

func startDaemon() {
	cfg := loadConfig()
	dm := daemon.New(cfg.Daemon.PIDFile)
	checkNotRunning(dm)

	if !daemon.IsChild() {
		// Parent process - spawn the detached child and exit
		pid, err := daemon.NewRelauncher(true).Spawn()
		if err != nil {
			log.Fatalf("Failed to start daemon process: %v", err)
		}
		fmt.Printf("Daemon started successfully (PID: %d)\n", pid)
		fmt.Printf("Control API: http://%s\n", cfg.Address())
		fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)
		return
	}

	if err := runDaemon(cfg, dm, true); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}
}

func runForeground() {
	cfg := loadConfig()
	dm := daemon.New(cfg.Daemon.PIDFile)
	checkNotRunning(dm)

	if err := runDaemon(cfg, dm, false); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}
}

// setupLogging sends logs to the log file unless we run in the foreground
// on a terminal. The returned file must be closed by the caller.
func setupLogging(cfg *config.Config, detached bool) *os.File {
	if !detached && term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}

	logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Failed to open log file %s: %v", cfg.Daemon.LogFile, err)
		return nil
	}
	log.SetOutput(logFile)
	return logFile
}

func runDaemon(cfg *config.Config, dm *daemon.Daemon, detached bool) error {
	if logFile := setupLogging(cfg, detached); logFile != nil {
		defer logFile.Close()
	}

	// A relaunched instance starts only once its predecessor has torn
	// down, so two overlay sets never coexist
	if pred := daemon.PredecessorPID(); pred > 0 {
		log.Printf("Waiting for predecessor (PID %d) to exit", pred)
		if err := daemon.WaitForExit(pred, cfg.Daemon.HandoffTimeout); err != nil {
			log.Printf("Continuing anyway: %v", err)
		}
	}

	// Initialize database
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := database.NewRepository(db)
	if n, err := repo.DeleteOldHistory(time.Now().Add(-historyRetention)); err != nil {
		log.Printf("Failed to prune history: %v", err)
	} else if n > 0 {
		log.Printf("Pruned %d old history rows", n)
	}

	// Initialize display backend
	backend, err := detector.New(cfg.Overlay.FadeDuration, cfg.Overlay.FrameInterval)
	if err != nil {
		return fmt.Errorf("failed to initialize display backend: %w", err)
	}
	defer backend.Close()

	// Restore settings
	state := blur.New(initialSnapshot(cfg))
	ctrl := control.New(state, repo, cfg)
	if err := ctrl.Restore(); err != nil {
		log.Printf("Using configured defaults: %v", err)
	}

	// Write PID file
	if err := dm.WritePID(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer dm.RemoveOwnPID()

	svc := tracker.NewService(backend.Host(), backend.Factory(), state, daemon.NewRelauncher(detached), ctrl.Interval())
	svc.SetRecorder(repo)
	ctrl.AttachPoller(svc)

	handler := web.NewHandler(ctrl, svc, reporter.New(repo, backend.GetDisplayServer()), repo)
	webServer := web.NewServer(cfg, handler)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			log.Println("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	// The overlays work without the API, so a busy port is not fatal
	if ln, err := webServer.Listen(); err != nil {
		log.Printf("Control API disabled: %v", err)
	} else {
		go func() {
			if err := webServer.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.Printf("Control API error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			if err := webServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down control API: %v", err)
			}
		}()
	}

	log.Println("Starting screenblur daemon...")
	log.Printf("Configuration:\n%s", cfg.String())

	err = svc.Start(ctx)
	switch {
	case errors.Is(err, tracker.ErrRestarting):
		log.Println("Handed over to relaunched instance")
		return nil
	case errors.Is(err, tracker.ErrRelaunchFailed):
		return err
	case err != nil && !errors.Is(err, context.Canceled):
		return fmt.Errorf("poll loop error: %w", err)
	}

	log.Println("Daemon stopped successfully")
	return nil
}

func initialSnapshot(cfg *config.Config) blur.Snapshot {
	tint, err := control.ParseColor(cfg.Blur.Color)
	if err != nil {
		log.Printf("Unknown configured color, using black: %v", err)
	}
	return blur.Snapshot{Enabled: cfg.Blur.Enabled, Opacity: cfg.Blur.Opacity, Tint: tint}
}

func stopDaemon() {
	cfg := config.New()
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return
	}

	fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop daemon: %v", err)
	}

	if err := daemon.WaitForExit(pid, 5*time.Second); err != nil {
		log.Fatalf("Daemon did not exit: %v", err)
	}

	fmt.Println("Daemon stopped successfully")
}

// daemonClient returns a client for the running daemon, nil if none runs
func daemonClient(cfg *config.Config) *web.Client {
	running, _, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if !running {
		return nil
	}
	return web.NewClient(cfg.Address())
}

// openRepository opens the settings database for offline commands
func openRepository(cfg *config.Config) (*database.Repository, func()) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return database.NewRepository(db), func() { db.Close() }
}

func showStatus() {
	cfg := config.New()
	jsonOutput := len(os.Args) > 2 && os.Args[2] == "--json"

	var (
		report *models.StatusReport
		rep    = reporter.New(nil, detector.DetectDisplayServer())
		err    error
	)

	if client := daemonClient(cfg); client != nil {
		report, err = client.Status()
		if err != nil {
			log.Fatalf("Failed to get status from daemon: %v", err)
		}
	} else {
		repo, closeDB := openRepository(cfg)
		defer closeDB()

		ctrl := control.New(blur.New(initialSnapshot(cfg)), repo, cfg)
		if err := ctrl.Restore(); err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}

		report, err = reporter.New(repo, detector.DetectDisplayServer()).GenerateStatus(nil, ctrl.State())
		if err != nil {
			log.Fatalf("Failed to generate status: %v", err)
		}
	}

	if jsonOutput {
		jsonStr, err := rep.FormatStatusJSON(report)
		if err != nil {
			log.Fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(jsonStr)
	} else {
		fmt.Print(rep.FormatStatusText(report))
	}
}

func showMonitors() {
	cfg := config.New()
	watch := len(os.Args) > 2 && os.Args[2] == "--watch"

	if client := daemonClient(cfg); client != nil && !watch {
		monitors, err := client.Monitors()
		if err != nil {
			log.Fatalf("Failed to get monitors from daemon: %v", err)
		}
		fmt.Print(reporter.FormatMonitorsText(monitors))
		return
	}

	backend, err := detector.New(cfg.Overlay.FadeDuration, cfg.Overlay.FrameInterval)
	if err != nil {
		log.Fatalf("Failed to initialize display backend: %v", err)
	}
	defer backend.Close()

	fmt.Printf("Display Server: %s\n\n", backend.GetDisplayServer())

	if !watch {
		if err := probeMonitors(backend.Host()); err != nil {
			log.Fatalf("Failed to read monitors: %v", err)
		}
		return
	}

	fmt.Println("Move the cursor between monitors; press Ctrl+C to stop")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Poller.CheckInterval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-sigChan:
			return
		case ev := <-backend.Host().TopologyChanges():
			fmt.Printf("Topology changed: %s (%d monitors)\n", ev.Kind, ev.Count)
		case <-ticker.C:
			monitors, err := backend.Host().Monitors()
			if err != nil {
				log.Printf("Error: %v", err)
				continue
			}
			cursor, err := backend.Host().CursorPosition()
			if err != nil {
				log.Printf("Error: %v", err)
				continue
			}
			if focused := focus.Resolve(monitors, cursor); focused != last {
				fmt.Printf("Focused monitor: %d (cursor %d,%d)\n", focused, cursor.X, cursor.Y)
				last = focused
			}
		}
	}
}

// probeMonitors prints one snapshot with the resolved focus
func probeMonitors(host display.Host) error {
	monitors, err := host.Monitors()
	if err != nil {
		return err
	}
	cursor, err := host.CursorPosition()
	if err != nil {
		return err
	}

	focused := focus.Resolve(monitors, cursor)
	statuses := make([]models.MonitorStatus, 0, len(monitors))
	for _, m := range monitors {
		statuses = append(statuses, models.MonitorStatus{
			Index:   m.Index,
			Bounds:  m.Bounds,
			Focused: m.Index == focused,
		})
	}

	fmt.Printf("Cursor: %d,%d\n\n", cursor.X, cursor.Y)
	fmt.Print(reporter.FormatMonitorsText(statuses))
	return nil
}

func showRestarts() {
	limit := 10
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			log.Fatalf("Invalid count: %s", os.Args[2])
		}
		limit = n
	}

	cfg := config.New()
	repo, closeDB := openRepository(cfg)
	defer closeDB()

	events, err := repo.GetRestartEvents(limit)
	if err != nil {
		log.Fatalf("Failed to get restarts: %v", err)
	}

	fmt.Print(reporter.FormatRestartsText(events, time.Now()))
}

func clearHistory() {
	cfg := config.New()

	// Prompt for confirmation
	fmt.Print("This will delete all error and restart history. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)

	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	repo, closeDB := openRepository(cfg)
	defer closeDB()

	if err := repo.Clear(); err != nil {
		log.Fatalf("Failed to clear history: %v", err)
	}

	fmt.Println("History cleared successfully")
}

// controller is implemented by both the API client and the local control surface
type controller interface {
	Apply(p control.Patch) (control.View, error)
	Toggle() (control.View, error)
}

// applyControl sends the change to the running daemon, or stores it for the
// next start when none runs
func applyControl(change func(c controller) (control.View, error)) {
	cfg := config.New()

	if client := daemonClient(cfg); client != nil {
		view, err := change(client)
		if err != nil {
			log.Fatalf("Failed to apply change: %v", err)
		}
		printView(view)
		return
	}

	repo, closeDB := openRepository(cfg)
	defer closeDB()

	ctrl := control.New(blur.New(initialSnapshot(cfg)), repo, cfg)
	if err := ctrl.Restore(); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	view, err := change(ctrl)
	if err != nil {
		log.Fatalf("Failed to apply change: %v", err)
	}
	printView(view)
	fmt.Println("(daemon not running; saved for next start)")
}

func printView(v control.View) {
	enabled := "off"
	if v.Enabled {
		enabled = "on"
	}
	fmt.Printf("Blur: %s, opacity %s, color %s, interval %v\n",
		enabled, utils.FormatPercent(v.Opacity), v.Color, time.Duration(v.IntervalMs)*time.Millisecond)
}

func requireArg(usage string) string {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: screenblur %s\n", usage)
		os.Exit(1)
	}
	return os.Args[2]
}

// parseInterval accepts a Go duration ("250ms") or a bare millisecond count
func parseInterval(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}
