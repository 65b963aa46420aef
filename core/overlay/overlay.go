// Package overlay composes a partition's surviving modules into a live
// overlayfs mount: a root overlay over the partition itself plus, for
// every pre-existing sub-mount the kernel already has nested under that
// partition, a matching child overlay or bind-mount so nothing the
// stock stack mounted gets shadowed.
package overlay

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hybridmount/hybrid-mount/core/defs"
	"github.com/hybridmount/hybrid-mount/core/planner"
	"github.com/hybridmount/hybrid-mount/core/platform"
	"github.com/hybridmount/hybrid-mount/core/storage"
)

// Engine mounts OverlayOperations produced by the planner.
type Engine struct {
	MountSource   string
	DisableUmount bool
	UmountManager storage.UmountEnqueuer
}

// New builds an Engine. umountManager may be nil; a nil manager silently
// drops SendUmountable calls instead of queuing them.
func New(mountSource string, disableUmount bool, umountManager storage.UmountEnqueuer) *Engine {
	if umountManager == nil {
		umountManager = storage.NoopUmountEnqueuer()
	}

	return &Engine{MountSource: mountSource, DisableUmount: disableUmount, UmountManager: umountManager}
}

// Mount composes op's lowerdirs into a live overlay over op.Target, then
// replicates every pre-existing sub-mount under op.Target so the overlay
// doesn't shadow stock mount points (tmpfs debugfs, other overlays,
// etc). On a child mount failure it reverts by detaching op.Target,
// unless DisableUmount is set.
func (e *Engine) Mount(op planner.OverlayOperation) error {
	if len(op.Lowerdirs) == 0 {
		return nil
	}

	upperdir, workdir := e.stagingDirs(op.PartitionName)

	// Pin the pre-overlay directory via its fd before mounting over it.
	// /proc/self/fd/<n> keeps resolving to the original dentry even once
	// a new overlay mount is stacked on top of op.Target, without
	// mutating the whole process's working directory via chdir.
	stockFd, err := unix.Open(op.Target, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		return fmt.Errorf("failed to pin stock root %s: %w", op.Target, err)
	}
	defer unix.Close(stockFd)

	stockRoot := fmt.Sprintf("/proc/self/fd/%d", stockFd)

	childMounts, err := platform.MountPointsUnder(op.Target)
	if err != nil {
		return fmt.Errorf("failed to enumerate sub-mounts of %s: %w", op.Target, err)
	}

	source := e.mountSourceFor(op.Target)

	if err := e.mountOverlayfs(op.Lowerdirs, stockRoot, upperdir, workdir, op.Target, source); err != nil {
		return fmt.Errorf("failed to mount overlay for root %s: %w", op.Target, err)
	}

	for _, mountPoint := range childMounts {
		relative := strings.TrimPrefix(mountPoint, op.Target)
		childStockRoot := filepath.Join(stockRoot, relative)

		if _, err := os.Stat(childStockRoot); err != nil {
			continue
		}

		if err := e.mountChild(mountPoint, relative, op.Lowerdirs, childStockRoot, source); err != nil {
			if !e.DisableUmount {
				_ = platform.Unmount(op.Target, true)
			}

			return fmt.Errorf("failed to mount overlay for child %s, reverted: %w", mountPoint, err)
		}
	}

	if !e.DisableUmount {
		_ = e.UmountManager.SendUmountable(op.Target)
	}

	return nil
}

// mountChild overlays or bind-mounts a single pre-existing sub-mount
// found under the partition root. If no module contributes anything at
// relative, the stock sub-mount is left untouched by bind-mounting it
// back over itself so the original content remains reachable after the
// root overlay replaced everything above it.
func (e *Engine) mountChild(mountPoint, relative string, moduleRoots []string, stockRoot, source string) error {
	contributed := false

	var lowerdirs []string

	for _, lower := range moduleRoots {
		lowerChild := lower + relative

		info, err := os.Stat(lowerChild)
		if err != nil {
			continue
		}

		contributed = true

		if info.IsDir() {
			lowerdirs = append(lowerdirs, lowerChild)
		} else {
			// A module replaces this path with a non-directory; overlaying
			// would be meaningless, leave the stock sub-mount as-is.
			return nil
		}
	}

	if !contributed {
		return platform.BindMove(stockRoot, mountPoint)
	}

	if info, err := os.Stat(stockRoot); err != nil || !info.IsDir() {
		return nil
	}

	if len(lowerdirs) == 0 {
		return nil
	}

	childSource := e.mountSourceFor(mountPoint)

	if err := e.mountOverlayfs(lowerdirs, stockRoot, "", "", mountPoint, childSource); err != nil {
		if bindErr := platform.BindMove(stockRoot, mountPoint); bindErr != nil {
			return fmt.Errorf("overlay failed (%v) and bind fallback failed: %w", err, bindErr)
		}
	}

	if !e.DisableUmount {
		_ = e.UmountManager.SendUmountable(mountPoint)
	}

	return nil
}

// mountOverlayfs appends the stock root as the bottommost lowerdir, then
// collapses tail layers into intermediate staging overlays whenever the
// combined layer count would exceed defs.MaxOverlayLayers.
func (e *Engine) mountOverlayfs(lowerdirs []string, lowest, upperdir, workdir, dest, source string) error {
	layers := append(append([]string{}, lowerdirs...), lowest)

	for len(layers) > defs.MaxOverlayLayers {
		splitAt := len(layers) - (defs.MaxOverlayLayers - 1)
		if splitAt < 0 {
			splitAt = 0
		}

		bottomChunk := append([]string{}, layers[splitAt:]...)
		layers = layers[:splitAt]

		stagingDir := filepath.Join(defs.RunDir, fmt.Sprintf("staging_%d", time.Now().UnixNano()))
		if err := os.MkdirAll(stagingDir, 0o755); err != nil {
			return fmt.Errorf("failed to create staging dir %s: %w", stagingDir, err)
		}

		if err := platform.MountOverlay(bottomChunk, "", "", stagingDir, source); err != nil {
			return fmt.Errorf("failed to mount intermediate staging overlay at %s: %w", stagingDir, err)
		}

		if !e.DisableUmount {
			_ = e.UmountManager.SendUmountable(stagingDir)
		}

		layers = append(layers, stagingDir)
	}

	return platform.MountOverlay(layers, upperdir, workdir, dest, source)
}

// mountSourceFor returns the overlay mount source name for target,
// forcing the literal "overlay" on the handful of library directories
// that should always report as "overlay" in mountinfo regardless of
// the configured mount source.
func (e *Engine) mountSourceFor(target string) string {
	for _, p := range defs.IgnoreUnmountPartitions {
		if target == p {
			return "overlay"
		}
	}

	return e.MountSource
}

// stagingDirs returns the upperdir/workdir pair for partition if both
// already exist under defs.SystemRWDir, or two empty strings if the
// partition has no writable staging area (magic-only contributions,
// read-only overlay).
func (e *Engine) stagingDirs(partition string) (upperdir, workdir string) {
	upper := filepath.Join(defs.SystemRWDir, partition, "upperdir")
	work := filepath.Join(defs.SystemRWDir, partition, "workdir")

	if dirExists(upper) && dirExists(work) {
		return upper, work
	}

	return "", ""
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
