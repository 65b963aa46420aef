package storage

import (
	"os"
	"path/filepath"

	"github.com/hybridmount/hybrid-mount/core/defs"
	"github.com/hybridmount/hybrid-mount/core/platform"
)

// Setup is the storage-provisioning decision procedure: remove stale
// images, then in order try erofs staging, tmpfs, finally an ext4
// backing image.
func Setup(
	mntBase, imgPath, moduleDir string,
	forceExt4, useErofs bool,
	mountSource string,
	disableUmount bool,
	umountManager UmountEnqueuer,
	rootManagerKind string,
) (*Handle, error) {
	if umountManager == nil {
		umountManager = noopUmountEnqueuer{}
	}

	erofsPath := imgPath[:len(imgPath)-len(filepath.Ext(imgPath))] + ".erofs"

	_ = os.Remove(imgPath)
	_ = os.Remove(erofsPath)

	if mounted, _ := platform.Mounted(mntBase); mounted {
		_ = platform.Unmount(mntBase, true)
	}

	tryHide := func(path string) {
		if !disableUmount {
			_ = umountManager.SendUmountable(path)
		}
	}

	makePrivate := func(path string) {
		_ = platform.SetPropagationPrivate(path)
	}

	if useErofs && platform.ErofsSupported() {
		stagingDir := filepath.Join(defs.RunDir, "erofs_staging")

		if mounted, _ := platform.Mounted(stagingDir); mounted {
			_ = platform.Unmount(stagingDir, true)
		}

		_ = os.RemoveAll(stagingDir)

		if err := os.MkdirAll(stagingDir, 0o755); err != nil {
			return nil, err
		}

		if err := platform.MountTmpfs(stagingDir, mountSource); err != nil {
			return nil, err
		}

		makePrivate(stagingDir)
		tryHide(stagingDir)

		return &Handle{Backend: &ErofsBackend{
			mountPoint:    stagingDir,
			mode:          "erofs_staging",
			backingImage:  erofsPath,
			finalTarget:   mntBase,
			umountManager: umountManager,
		}}, nil
	}

	if !forceExt4 {
		if ok, err := trySetupTmpfs(mntBase, mountSource); err != nil {
			return nil, err
		} else if ok {
			makePrivate(mntBase)
			tryHide(mntBase)

			return &Handle{Backend: &TmpfsBackend{Mount: mntBase}}, nil
		}
	}

	backend, err := setupExt4Image(mntBase, imgPath, moduleDir, rootManagerKind)
	if err != nil {
		return nil, err
	}

	makePrivate(mntBase)
	tryHide(mntBase)

	return &Handle{Backend: backend}, nil
}

func trySetupTmpfs(target, mountSource string) (bool, error) {
	if err := platform.MountTmpfs(target, mountSource); err != nil {
		return false, nil
	}

	if platform.XattrOverlaySupportedOn(target) {
		return true, nil
	}

	_ = platform.Unmount(target, true)

	return false, nil
}
