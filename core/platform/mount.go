//go:build linux

// Package platform is the thin façade over mount/unmount/fsopen/
// move_mount/open_tree, loop-device acquisition, SELinux relabeling,
// mountinfo parsing, and subprocess invocation that every other core
// package calls into instead of touching syscalls directly.
package platform

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// MountTmpfs mounts a tmpfs at target, using source as the fake device
// name the kernel records in mountinfo.
func MountTmpfs(target, source string) error {
	if err := unix.Mount(source, target, "tmpfs", 0, "mode=0755"); err != nil {
		return fmt.Errorf("failed to mount tmpfs at %s: %w", target, err)
	}

	return nil
}

// Unmount detaches path. When detach is true it uses MNT_DETACH (lazy
// unmount), matching the storage layer's "best-effort, don't block on a
// busy mount" convention.
func Unmount(path string, detach bool) error {
	var flags int
	if detach {
		flags = unix.MNT_DETACH
	}

	if err := unix.Unmount(path, flags); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", path, err)
	}

	return nil
}

// SetPropagationPrivate marks path MS_PRIVATE|MS_REC so its mount events
// never leak to peer namespaces.
func SetPropagationPrivate(path string) error {
	if err := unix.Mount("", path, "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("failed to set propagation private on %s: %w", path, err)
	}

	return nil
}

// escapeCommas escapes commas in an overlayfs mount option value, as both
// the modern and legacy mount paths require.
func escapeCommas(s string) string {
	return strings.ReplaceAll(s, ",", "\\,")
}

// MountOverlay mounts an overlayfs at dest from the given lowerdirs
// (highest priority first), optional upperdir/workdir, and a mount
// source name. It tries the modern fsopen/fsconfig/fsmount/move_mount
// sequence first and falls back to the legacy mount(2) "overlay" call on
// any failure.
func MountOverlay(lowerdirs []string, upperdir, workdir, dest, source string) error {
	lowerdirConfig := strings.Join(lowerdirs, ":")

	if err := mountOverlayModern(lowerdirConfig, upperdir, workdir, dest, source); err == nil {
		return nil
	}

	return mountOverlayLegacy(lowerdirConfig, upperdir, workdir, dest, source)
}

func mountOverlayModern(lowerdirConfig, upperdir, workdir, dest, source string) error {
	fsfd, err := unix.Fsopen("overlay", 0)
	if err != nil {
		return fmt.Errorf("fsopen overlay: %w", err)
	}
	defer unix.Close(fsfd)

	if err := unix.FsconfigSetString(fsfd, "lowerdir", escapeCommas(lowerdirConfig)); err != nil {
		return fmt.Errorf("fsconfig lowerdir: %w", err)
	}

	if upperdir != "" && workdir != "" {
		if err := unix.FsconfigSetString(fsfd, "upperdir", escapeCommas(upperdir)); err != nil {
			return fmt.Errorf("fsconfig upperdir: %w", err)
		}

		if err := unix.FsconfigSetString(fsfd, "workdir", escapeCommas(workdir)); err != nil {
			return fmt.Errorf("fsconfig workdir: %w", err)
		}
	}

	if err := unix.FsconfigSetString(fsfd, "source", source); err != nil {
		return fmt.Errorf("fsconfig source: %w", err)
	}

	if err := unix.FsconfigCreate(fsfd); err != nil {
		return fmt.Errorf("fsconfig create: %w", err)
	}

	mfd, err := unix.Fsmount(fsfd, 0, 0)
	if err != nil {
		return fmt.Errorf("fsmount: %w", err)
	}
	defer unix.Close(mfd)

	if err := unix.MoveMount(mfd, "", unix.AT_FDCWD, dest, unix.MOVE_MOUNT_F_EMPTY_PATH); err != nil {
		return fmt.Errorf("move_mount: %w", err)
	}

	return nil
}

func mountOverlayLegacy(lowerdirConfig, upperdir, workdir, dest, source string) error {
	data := fmt.Sprintf("lowerdir=%s", escapeCommas(lowerdirConfig))

	if upperdir != "" && workdir != "" {
		data = fmt.Sprintf("%s,upperdir=%s,workdir=%s", data, escapeCommas(upperdir), escapeCommas(workdir))
	}

	if err := unix.Mount(source, dest, "overlay", 0, data); err != nil {
		return fmt.Errorf("legacy overlay mount at %s: %w", dest, err)
	}

	return nil
}

// BindMove bind-mounts from onto to, preferring open_tree(CLONE|RECURSIVE)
// + move_mount(EMPTY_PATH), falling back to the legacy MS_BIND|MS_REC
// mount on failure.
func BindMove(from, to string) error {
	tree, err := unix.OpenTree(unix.AT_FDCWD, from, unix.OPEN_TREE_CLOEXEC|unix.OPEN_TREE_CLONE|unix.AT_RECURSIVE)
	if err == nil {
		defer unix.Close(tree)

		if moveErr := unix.MoveMount(tree, "", unix.AT_FDCWD, to, unix.MOVE_MOUNT_F_EMPTY_PATH); moveErr == nil {
			return nil
		}
	}

	if mountErr := unix.Mount(from, to, "", unix.MS_BIND|unix.MS_REC, ""); mountErr != nil {
		return fmt.Errorf("bind mount %s -> %s: %w", from, to, mountErr)
	}

	return nil
}
