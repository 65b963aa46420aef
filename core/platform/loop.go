//go:build linux

package platform

import (
	"fmt"
	"os"

	"go.podman.io/storage/pkg/loopback"
	"golang.org/x/sys/unix"

	"github.com/hybridmount/hybrid-mount/core/errs"
)

// MountExt4 loop-attaches image read-write and mounts it ext4 at target.
func MountExt4(image, target string) error {
	loop, err := loopback.AttachLoopDevice(image, false)
	if err != nil {
		return fmt.Errorf("failed to attach loop device for %s: %w", image, err)
	}
	defer loop.Close()

	if err := unix.Mount(loop.Name(), target, "ext4", 0, ""); err != nil {
		return fmt.Errorf("failed to mount ext4 image %s at %s: %w", image, target, err)
	}

	return nil
}

// MountErofs loop-attaches image read-only (autoclear) and mounts it
// erofs at target with NOATIME|NODEV|RDONLY, verifying the resulting
// directory is non-empty.
func MountErofs(image, target string) error {
	loop, err := loopback.AttachLoopDeviceRO(image)
	if err != nil {
		return fmt.Errorf("failed to attach read-only loop device for %s: %w", image, err)
	}
	defer loop.Close()

	flags := uintptr(unix.MS_NOATIME | unix.MS_NODEV | unix.MS_RDONLY)
	if err := unix.Mount(loop.Name(), target, "erofs", flags, ""); err != nil {
		return fmt.Errorf("failed to mount erofs image %s at %s: %w", image, target, err)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return fmt.Errorf("failed to verify erofs mount at %s: %w", target, err)
	}

	if len(entries) == 0 {
		return fmt.Errorf("erofs image %s mounted empty at %s: %w", image, target, errs.ErrEmptyErofs)
	}

	return nil
}
