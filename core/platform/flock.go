//go:build linux

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FlockExclusive attempts a non-blocking exclusive flock on fd, returning
// unix.EWOULDBLOCK wrapped if another process already holds it.
func FlockExclusive(fd int) error {
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return fmt.Errorf("failed to acquire exclusive lock: %w", err)
	}

	return nil
}

// FlockRelease drops the lock held on fd.
func FlockRelease(fd int) error {
	if err := unix.Flock(fd, unix.LOCK_UN); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}
