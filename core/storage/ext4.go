package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"

	"github.com/hybridmount/hybrid-mount/core/defs"
	"github.com/hybridmount/hybrid-mount/core/platform"
)

const minExt4ImageSize = 64 * 1024 * 1024

func calculateTotalSize(path string) (int64, error) {
	var total int64

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, err
	}

	for _, e := range entries {
		full := filepath.Join(path, e.Name())

		info, err := e.Info()
		if err != nil {
			return 0, err
		}

		if e.IsDir() {
			sub, err := calculateTotalSize(full)
			if err != nil {
				return 0, err
			}

			total += sub
		} else if info.Mode().IsRegular() {
			total += info.Size()
		}
	}

	return total, nil
}

func growSize(totalSize int64) int64 {
	grown := int64(float64(totalSize) * 1.2)
	if grown < minExt4ImageSize {
		return minExt4ImageSize
	}

	return grown
}

// setupExt4Image provisions a sparse ext4 backing image sized to 1.2x the
// module directory's total size (minimum 64MiB), formats it, repairs it,
// loop-mounts it, clears it with the detected root manager's nuke
// routine (or a plain unmount), and serially relabels every path with
// defs.DefaultSELinuxContext.
func setupExt4Image(target, imgPath, moduleDir, rootManagerKind string) (*Ext4Backend, error) {
	totalSize, err := calculateTotalSize(moduleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to size module directory %s: %w", moduleDir, err)
	}

	size := growSize(totalSize)

	f, err := os.Create(imgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create ext4 image %s: %w", imgPath, err)
	}

	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to size ext4 image %s: %w", imgPath, err)
	}

	f.Close()

	if err := platform.MkfsExt4(imgPath); err != nil {
		return nil, fmt.Errorf("failed to format ext4 image %s: %w", imgPath, err)
	}

	_ = platform.E2fsck(imgPath)
	_ = platform.SetSELinuxContext(imgPath, defs.ImageSELinuxContext)

	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ext4 mount target %s: %w", target, err)
	}

	if err := platform.MountExt4(imgPath, target); err != nil {
		if repairErr := platform.E2fsck(imgPath); repairErr != nil {
			return nil, fmt.Errorf("failed to repair %s after mount failure: %w", imgPath, repairErr)
		}

		if err := platform.MountExt4(imgPath, target); err != nil {
			return nil, fmt.Errorf("failed to mount ext4 image %s at %s after repair: %w", imgPath, target, err)
		}
	}

	if rootManagerKind == "KSU" {
		platform.NukePath(target)
	} else {
		_ = platform.Unmount(target, true)
	}

	if err := relabelTreeSerial(target, defs.DefaultSELinuxContext); err != nil {
		return nil, fmt.Errorf("failed to relabel ext4 tree at %s: %w", target, err)
	}

	return &Ext4Backend{Mount: target}, nil
}

// relabelTreeSerial walks target serially (godirwalk, not a parallel
// walker) applying ctx to every path — SELinux relabeling during image
// provisioning must not race itself.
func relabelTreeSerial(target, ctx string) error {
	return godirwalk.Walk(target, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, _ *godirwalk.Dirent) error {
			_ = platform.SetSELinuxContext(path, ctx)
			return nil
		},
	})
}
