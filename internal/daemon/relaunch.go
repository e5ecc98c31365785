package daemon

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
)

const (
	// ChildEnv marks a process started by Spawn as the detached daemon
	ChildEnv = "SCREENBLUR_DAEMON_CHILD"

	// PredecessorEnv carries the PID of the instance being replaced
	PredecessorEnv = "SCREENBLUR_PREDECESSOR_PID"
)

// Relauncher starts a fresh instance of the running program
type Relauncher struct {
	Path   string   // Executable, os.Executable() when empty
	Args   []string // Full argv including argv[0]
	Detach bool     // Start in a new session with stdio closed
}

// NewRelauncher relaunches the current executable with its current arguments
func NewRelauncher(detach bool) *Relauncher {
	return &Relauncher{Args: os.Args, Detach: detach}
}

// Relaunch starts the new instance and returns its PID. The child learns
// our PID through PredecessorEnv so it can wait for us to finish tearing down.
func (r *Relauncher) Relaunch() (int, error) {
	env := withoutEnv(os.Environ(), PredecessorEnv)
	env = append(env, PredecessorEnv+"="+strconv.Itoa(os.Getpid()))
	return r.start(env)
}

// Spawn starts the detached daemon child for the start command
func (r *Relauncher) Spawn() (int, error) {
	env := withoutEnv(os.Environ(), ChildEnv)
	env = append(env, ChildEnv+"=1")
	return r.start(env)
}

func (r *Relauncher) start(env []string) (int, error) {
	path := r.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return 0, fmt.Errorf("failed to locate executable: %w", err)
		}
		path = exe
	}

	procAttr := &os.ProcAttr{Env: env}
	if r.Detach {
		procAttr.Files = []*os.File{nil, nil, nil} // stdin, stdout, stderr to /dev/null
		procAttr.Sys = &syscall.SysProcAttr{
			Setsid: true, // Create new session
		}
	} else {
		procAttr.Files = []*os.File{os.Stdin, os.Stdout, os.Stderr}
	}

	process, err := os.StartProcess(path, r.Args, procAttr)
	if err != nil {
		return 0, fmt.Errorf("failed to start process: %w", err)
	}

	pid := process.Pid
	// The child outlives us; nothing to wait for
	_ = process.Release()
	return pid, nil
}

// PredecessorPID returns the PID passed by Relaunch, 0 if this instance was started normally
func PredecessorPID() int {
	pid, err := strconv.Atoi(os.Getenv(PredecessorEnv))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

// IsChild reports whether this process is the detached daemon child
func IsChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

func withoutEnv(env []string, key string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if len(kv) >= len(prefix) && kv[:len(prefix)] == prefix {
			continue
		}
		out = append(out, kv)
	}
	return out
}
