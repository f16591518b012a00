// Package filelock provides cross-process advisory locking over a resource
// path using an atomically created lock directory.
package filelock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/foundryforge/agentmem/internal/errs"
)

// StaleAfter is the default age after which an unrefreshed lock is
// considered abandoned by a crashed holder.
const StaleAfter = 5 * time.Minute

const pollInterval = 25 * time.Millisecond

// Lock guards a single resource path via path+".lock" directory creation.
// os.Mkdir is atomic on every platform Go supports, so acquisition needs
// no further coordination.
type Lock struct {
	path       string
	lockDir    string
	metaPath   string
	staleAfter time.Duration
	held       bool
}

type holder struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
	Path       string    `json:"path"`
}

// New returns a lock for path. It does not acquire anything.
func New(path string) *Lock {
	return &Lock{
		path:       path,
		lockDir:    path + ".lock",
		metaPath:   filepath.Join(path+".lock", "holder.json"),
		staleAfter: StaleAfter,
	}
}

// WithStaleAfter overrides the stale-lock age threshold.
func (l *Lock) WithStaleAfter(d time.Duration) *Lock {
	l.staleAfter = d
	return l
}

// Acquire blocks until the lock is held or timeout elapses. timeout <= 0
// means wait forever.
func (l *Lock) Acquire(timeout time.Duration) error {
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		err := os.Mkdir(l.lockDir, 0o755)
		if err == nil {
			l.writeMeta()
			l.held = true
			return nil
		}
		if !os.IsExist(err) {
			return errs.Wrap(err, errs.CodeIOFailure, "create lock directory")
		}
		if l.breakStale() {
			continue
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return errs.Errorf(errs.CodeLockTimeout, "lock timeout on %s (holder: %s)", l.path, l.readHolder())
		}
		time.Sleep(pollInterval)
	}
}

// TryAcquire attempts to acquire the lock without blocking.
func (l *Lock) TryAcquire() (bool, error) {
	err := os.Mkdir(l.lockDir, 0o755)
	if err == nil {
		l.writeMeta()
		l.held = true
		return true, nil
	}
	if !os.IsExist(err) {
		return false, errs.Wrap(err, errs.CodeIOFailure, "create lock directory")
	}
	if l.breakStale() {
		return l.TryAcquire()
	}
	return false, nil
}

// Release drops the lock. It is a no-op if not held.
func (l *Lock) Release() {
	if !l.held {
		return
	}
	os.Remove(l.metaPath)
	os.Remove(l.lockDir)
	l.held = false
}

func (l *Lock) writeMeta() {
	hostname, _ := os.Hostname()
	meta := holder{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().UTC(), Path: l.path}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	_ = os.WriteFile(l.metaPath, data, 0o644)
}

func (l *Lock) readHolder() string {
	h, ok := l.readMeta()
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("pid=%d, host=%s, acquired=%s", h.PID, h.Hostname, h.AcquiredAt.Format(time.RFC3339))
}

func (l *Lock) readMeta() (holder, bool) {
	data, err := os.ReadFile(l.metaPath)
	if err != nil {
		return holder{}, false
	}
	var h holder
	if err := json.Unmarshal(data, &h); err != nil {
		return holder{}, false
	}
	return h, true
}

// breakStale removes the lock directory if the current holder appears to
// have crashed: missing metadata past staleAfter, metadata older than
// staleAfter, or a holder PID that no longer exists. Returns true if it
// broke the lock.
func (l *Lock) breakStale() bool {
	info, err := os.Stat(l.lockDir)
	if err != nil {
		return false
	}
	h, ok := l.readMeta()
	if !ok {
		if time.Since(info.ModTime()) > l.staleAfter {
			l.forceBreak()
			return true
		}
		return false
	}
	if time.Since(h.AcquiredAt) > l.staleAfter {
		l.forceBreak()
		return true
	}
	if h.PID != 0 && h.PID != os.Getpid() && !processAlive(h.PID) {
		l.forceBreak()
		return true
	}
	return false
}

func (l *Lock) forceBreak() {
	os.Remove(l.metaPath)
	os.Remove(l.lockDir)
}

// processAlive reports whether pid is a running process, via a signal-0 probe.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err != syscall.ESRCH
}
