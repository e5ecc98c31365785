package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"screenblur/internal/blur"
	"screenblur/internal/focus"
	"screenblur/internal/models"
	"screenblur/internal/overlay"
	"screenblur/pkg/display"
)

var (
	// ErrRestarting is returned by Start after a topology change handed
	// control to a relaunched instance. The caller should exit.
	ErrRestarting = errors.New("topology changed, restarting")

	// ErrRelaunchFailed wraps a failure to start the replacement instance
	ErrRelaunchFailed = errors.New("failed to relaunch after topology change")
)

// Phase is the poll loop state
type Phase int32

const (
	PhaseRunning Phase = iota
	PhaseRestarting
)

func (p Phase) String() string {
	if p == PhaseRestarting {
		return "restarting"
	}
	return "running"
}

// Relauncher starts a fresh instance of the program and returns its PID
type Relauncher interface {
	Relaunch() (int, error)
}

// Recorder persists engine history. Any method may be called from the poll goroutine.
type Recorder interface {
	CreateErrorLog(errorLog *models.ErrorLog) error
	IncrementRepeats(id uint) error
	CreateRestartEvent(event *models.RestartEvent) error
}

// Status is a copy of what the last tick saw and did
type Status struct {
	Phase     Phase
	Ticks     uint64
	Interval  time.Duration
	Monitors  []display.Monitor
	Cursor    display.Point
	Focused   int
	Pushed    map[int]display.PushState
	Overlays  int
	LastError string
}

// Service is the poll loop: snapshot, resolve, reconcile and broadcast on a fixed cadence.
type Service struct {
	host        display.Host
	registry    *overlay.Registry
	broadcaster *overlay.Broadcaster
	state       *blur.State
	relauncher  Relauncher
	recorder    Recorder

	interval   time.Duration
	intervalCh chan time.Duration
	stopChan   chan struct{}
	stopOnce   sync.Once
	running    atomic.Bool
	phase      atomic.Int32

	mu         sync.Mutex
	status     Status
	lastErrMsg string
	lastErrID  uint
}

func NewService(host display.Host, factory display.SurfaceFactory, state *blur.State, relauncher Relauncher, interval time.Duration) *Service {
	return &Service{
		host:        host,
		registry:    overlay.NewRegistry(factory),
		broadcaster: overlay.NewBroadcaster(),
		state:       state,
		relauncher:  relauncher,
		interval:    interval,
		intervalCh:  make(chan time.Duration, 1),
		stopChan:    make(chan struct{}),
		status:      Status{Interval: interval},
	}
}

// SetRecorder makes the loop persist tick errors and restart events
func (s *Service) SetRecorder(recorder Recorder) {
	s.recorder = recorder
}

// Start runs the loop until ctx is cancelled, Stop is called, or a topology
// change triggers a restart. Every overlay is destroyed before Start returns.
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("poll loop is already running")
	}
	defer s.running.Store(false)

	if s.Phase() == PhaseRestarting {
		return ErrRestarting
	}

	log.Printf("Starting poll loop with %v check interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.registry.Close()

	topology := s.host.TopologyChanges()

	s.tickAndSkip(ticker)

	for {
		select {
		case <-ctx.Done():
			log.Println("Poll loop stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			log.Println("Poll loop stopped")
			return nil

		case ev := <-topology:
			return s.restart(ev)

		case d := <-s.intervalCh:
			s.interval = d
			ticker.Reset(d)
			s.mu.Lock()
			s.status.Interval = d
			s.mu.Unlock()
			log.Printf("Check interval changed to %v", d)

		case <-ticker.C:
			s.tickAndSkip(ticker)
		}
	}
}

// Stop ends the loop without restarting
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// IsRunning reports whether Start is executing
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Phase returns the current loop state
func (s *Service) Phase() Phase {
	return Phase(s.phase.Load())
}

// SetInterval changes the tick cadence. It takes effect between ticks and
// never blocks; only the latest pending request is kept.
func (s *Service) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	for {
		select {
		case s.intervalCh <- d:
			return
		default:
		}
		select {
		case <-s.intervalCh:
		default:
		}
	}
}

// Status returns a copy of the last tick's result
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status
	st.Phase = s.Phase()
	st.Monitors = append([]display.Monitor(nil), s.status.Monitors...)
	st.Pushed = make(map[int]display.PushState, len(s.status.Pushed))
	for k, v := range s.status.Pushed {
		st.Pushed[k] = v
	}
	return st
}

// tickAndSkip runs a tick and drops the firing left pending by an overrun,
// so ticks never run back-to-back.
func (s *Service) tickAndSkip(ticker *time.Ticker) {
	s.tick()
	select {
	case <-ticker.C:
	default:
	}
}

// tick runs one snapshot, resolve, reconcile, broadcast pass. A failed read
// leaves the previous focus and overlay set untouched.
func (s *Service) tick() {
	monitors, cursor, err := s.snapshot()
	if err != nil {
		s.storeError(err)
		s.mu.Lock()
		s.status.Ticks++
		s.status.LastError = err.Error()
		s.mu.Unlock()
		return
	}

	focused := focus.Resolve(monitors, cursor)
	s.registry.Reconcile(monitors)
	pushed := s.broadcaster.Broadcast(s.registry.Handles(), focused, s.state.Load())

	s.mu.Lock()
	s.status.Ticks++
	s.status.Monitors = monitors
	s.status.Cursor = cursor
	s.status.Focused = focused
	s.status.Pushed = pushed
	s.status.Overlays = s.registry.Len()
	s.status.LastError = ""
	s.lastErrMsg = ""
	s.mu.Unlock()
}

func (s *Service) snapshot() ([]display.Monitor, display.Point, error) {
	monitors, err := s.host.Monitors()
	if err != nil {
		return nil, display.Point{}, fmt.Errorf("failed to read monitors: %w", err)
	}

	cursor, err := s.host.CursorPosition()
	if err != nil {
		return nil, display.Point{}, fmt.Errorf("failed to read cursor position: %w", err)
	}

	return monitors, cursor, nil
}

// restart hands over to a fresh instance. It runs at most once per Service;
// the deferred registry teardown in Start follows immediately.
func (s *Service) restart(ev display.TopologyEvent) error {
	if !s.phase.CompareAndSwap(int32(PhaseRunning), int32(PhaseRestarting)) {
		return ErrRestarting
	}

	log.Printf("Topology change (%s, %d monitors), relaunching", ev.Kind, ev.Count)

	event := &models.RestartEvent{
		Timestamp:    time.Now(),
		Reason:       ev.Kind.String(),
		MonitorCount: ev.Count,
		PID:          os.Getpid(),
	}

	childPID, err := s.relauncher.Relaunch()
	if err != nil {
		event.Error = err.Error()
		s.recordRestart(event)
		return fmt.Errorf("%w: %v", ErrRelaunchFailed, err)
	}

	event.ChildPID = childPID
	s.recordRestart(event)
	log.Printf("Relaunched as PID %d, tearing down", childPID)
	return ErrRestarting
}

func (s *Service) recordRestart(event *models.RestartEvent) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.CreateRestartEvent(event); err != nil {
		log.Printf("Failed to store restart event: %v", err)
	}
}

// storeError logs err and persists it, folding consecutive duplicates into one row
func (s *Service) storeError(err error) {
	msg := err.Error()

	s.mu.Lock()
	repeat := msg == s.lastErrMsg
	id := s.lastErrID
	s.lastErrMsg = msg
	s.mu.Unlock()

	if repeat {
		if s.recorder != nil && id != 0 {
			if dbErr := s.recorder.IncrementRepeats(id); dbErr != nil {
				log.Printf("Failed to update error log: %v", dbErr)
			}
		}
		return
	}

	if s.recorder == nil {
		log.Printf("Tick error: %v", err)
		return
	}

	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		ErrorMsg:  msg,
	}

	if dbErr := s.recorder.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %v", err)
		s.mu.Lock()
		s.lastErrID = errorLog.ID
		s.mu.Unlock()
	}
}
