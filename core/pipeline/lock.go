package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/hybridmount/hybrid-mount/core/platform"
)

// ErrOwnedLockFile is returned by LockFile.Lock when another process
// already holds the exclusive flock: only one hybrid-mount run is
// supported per host at a time.
var ErrOwnedLockFile = errors.New("lock file already owned by another process")

// LockFile is a pid-tagged flock guarding a single hybrid-mount run per
// host.
type LockFile struct {
	path string
	file *os.File
}

// NewLockFile opens (creating if necessary) the lock file at path without
// acquiring it.
func NewLockFile(path string) (*LockFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	return &LockFile{path: path, file: f}, nil
}

// Lock acquires a non-blocking exclusive flock and stamps the file with
// this process's pid. If another process already holds the lock,
// ErrOwnedLockFile is returned and GetOwnerPID/GetOwnerProcess report the
// existing holder read from the file's prior contents.
func (l *LockFile) Lock() error {
	if err := platform.FlockExclusive(int(l.file.Fd())); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrOwnedLockFile
		}

		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}

	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate lock file %s: %w", l.path, err)
	}

	if _, err := l.file.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		return fmt.Errorf("failed to stamp lock file %s: %w", l.path, err)
	}

	return nil
}

// Unlock releases the flock without removing the file.
func (l *LockFile) Unlock() error {
	if err := platform.FlockRelease(int(l.file.Fd())); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}

	return l.file.Close()
}

// Clean removes the lock file from disk. Callers call this after Unlock.
func (l *LockFile) Clean() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file %s: %w", l.path, err)
	}

	return nil
}

// GetOwnerPID reads the pid stamped in the lock file, 0 if unreadable.
func (l *LockFile) GetOwnerPID() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	return pid
}

// GetOwnerProcess returns the command name of the owning pid by reading
// /proc/<pid>/comm, best-effort.
func (l *LockFile) GetOwnerProcess() string {
	pid := l.GetOwnerPID()
	if pid == 0 {
		return "unknown"
	}

	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "unknown"
	}

	return strings.TrimSpace(string(data))
}
