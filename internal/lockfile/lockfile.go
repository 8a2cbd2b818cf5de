package lockfile

// #region imports
import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// #endregion

// #region errors

var (
	// ErrHeld means another live holder owns the lock. Recoverable:
	// callers retry with their own backoff or yield the turn.
	ErrHeld = errors.New("lock held by another process")

	// ErrReleased marks a double release. Labeled rather than silent so
	// misuse surfaces in logs instead of corrupting lock state.
	ErrReleased = errors.New("lock already released")
)

// #endregion errors

// #region types

// LockInfo is the on-disk content of a lock file.
type LockInfo struct {
	Name      string  `json:"name"`
	StartedAt float64 `json:"started_at"`
	HolderPID int     `json:"holder_pid"`
}

// Handle wraps an acquired lock. The open file descriptor is the
// exclusivity token; it stays open until Release.
type Handle struct {
	Name      string
	StartedAt float64
	HolderPID int

	file     *os.File
	path     string
	released bool
}

// #endregion types

// #region manager

// Manager provides named, crash-safe, non-blocking mutual exclusion via
// lock files in a shared directory. Exactly one live holder exists per
// lock name; contenders fail fast with ErrHeld.
type Manager struct {
	dir string
}

// NewManager creates a manager over an existing lock directory. A missing
// directory is a fatal precondition, not something to paper over here;
// bootstrap code creates it once.
func NewManager(dir string) (*Manager, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("lock directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("lock directory %s: not a directory", dir)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the lock directory.
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) lockPath(name string) string {
	return filepath.Join(m.dir, name+".lock")
}

// #endregion manager

// #region acquire

// Acquire tries to take the named lock. O_EXCL creation is the atomic
// exclusivity test: if the lock file already exists, the current holder's
// info is attached to the ErrHeld for the caller's logs.
func (m *Manager) Acquire(name string) (*Handle, error) {
	path := m.lockPath(name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			holder, readErr := readLockInfo(path)
			if readErr == nil {
				return nil, fmt.Errorf("lock %q held by pid %d since %.0f: %w",
					name, holder.HolderPID, holder.StartedAt, ErrHeld)
			}
			return nil, fmt.Errorf("lock %q: %w", name, ErrHeld)
		}
		return nil, fmt.Errorf("create lock %q: %w", name, err)
	}

	info := LockInfo{
		Name:      name,
		StartedAt: float64(time.Now().UnixNano()) / float64(time.Second),
		HolderPID: os.Getpid(),
	}
	data, err := json.Marshal(info)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("marshal lock info: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write lock info: %w", err)
	}

	return &Handle{
		Name:      name,
		StartedAt: info.StartedAt,
		HolderPID: info.HolderPID,
		file:      f,
		path:      path,
	}, nil
}

// #endregion acquire

// #region release

// Release closes the descriptor and removes the lock file. A second
// release of the same handle returns ErrReleased.
func (m *Manager) Release(h *Handle) error {
	if h == nil {
		return fmt.Errorf("release: nil handle")
	}
	if h.released {
		return fmt.Errorf("lock %q: %w", h.Name, ErrReleased)
	}
	h.released = true

	if h.file != nil {
		if err := h.file.Close(); err != nil {
			log.Printf("[LOCK] close %q: %v", h.Name, err)
		}
	}
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock %q: %w", h.Name, err)
	}
	return nil
}

// #endregion release

// #region staleness

// IsStale reports whether the handle's lock has outlived maxAge.
func (m *Manager) IsStale(h *Handle, maxAge time.Duration) bool {
	return Stale(LockInfo{StartedAt: h.StartedAt}, maxAge)
}

// Stale is the shared age predicate over on-disk lock info.
func Stale(info LockInfo, maxAge time.Duration) bool {
	age := float64(time.Now().UnixNano())/float64(time.Second) - info.StartedAt
	return age > maxAge.Seconds()
}

// #endregion staleness

// #region reaping

// ReapStale removes lock files older than maxAge whose recorded holder is
// no longer alive, returning the reaped lock names. This is a last-resort
// recovery path for crashed holders and belongs to a supervisory process:
// a contender reaping its own blocker races another contender into double
// ownership. An over-age lock with a live holder is reported and left
// alone; ReapStaleAgeOnly is the explicit opt-out.
func (m *Manager) ReapStale(maxAge time.Duration) ([]string, error) {
	return m.reap(maxAge, true)
}

// ReapStaleAgeOnly removes over-age locks without probing holder
// liveness. Accepted risk: a legitimately long-running holder past maxAge
// loses its lock.
func (m *Manager) ReapStaleAgeOnly(maxAge time.Duration) ([]string, error) {
	return m.reap(maxAge, false)
}

func (m *Manager) reap(maxAge time.Duration, checkLiveness bool) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read lock directory: %w", err)
	}

	var reaped []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		info, err := readLockInfo(path)
		if err != nil {
			log.Printf("[LOCK] unreadable lock file %s: %v", path, err)
			continue
		}
		if !Stale(info, maxAge) {
			continue
		}
		if checkLiveness && processAlive(info.HolderPID) {
			log.Printf("[LOCK] lock %q over age but holder pid %d alive, not reaping",
				info.Name, info.HolderPID)
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("[LOCK] failed to reap %q: %v", info.Name, err)
			continue
		}
		log.Printf("[LOCK] reaped stale lock %q (pid %d)", info.Name, info.HolderPID)
		reaped = append(reaped, info.Name)
	}
	return reaped, nil
}

// #endregion reaping

// #region helpers

func readLockInfo(path string) (LockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LockInfo{}, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return LockInfo{}, err
	}
	return info, nil
}

// #endregion helpers
