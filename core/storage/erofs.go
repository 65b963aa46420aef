package storage

import (
	"fmt"
	"os"

	"github.com/hybridmount/hybrid-mount/core/errs"
	"github.com/hybridmount/hybrid-mount/core/platform"
)

// UmountEnqueuer is the narrow slice of UmountManager storage needs:
// just the enqueue half, both best-effort.
type UmountEnqueuer interface {
	SendUmountable(path string) error
}

// noopUmountEnqueuer is used when callers don't wire a real umount
// manager (e.g. in tests), matching the best-effort "swallow errors"
// convention for this collaborator.
type noopUmountEnqueuer struct{}

func (noopUmountEnqueuer) SendUmountable(string) error { return nil }

// NoopUmountEnqueuer returns an UmountEnqueuer that silently drops every
// enqueue, for callers that haven't wired a real umount manager.
func NoopUmountEnqueuer() UmountEnqueuer { return noopUmountEnqueuer{} }

// ErofsBackend starts out as a tmpfs staging area (mode "erofs_staging")
// and transitions to a loop-mounted read-only erofs image (mode "erofs")
// on Commit. While staging, MountPoint() returns the tmpfs path; after
// commit it returns finalTarget.
type ErofsBackend struct {
	mountPoint    string
	mode          string
	backingImage  string
	finalTarget   string
	umountManager UmountEnqueuer
}

func (b *ErofsBackend) MountPoint() string { return b.mountPoint }
func (b *ErofsBackend) Mode() string       { return b.mode }

// Commit packs the staging directory into a compressed erofs image,
// detaches staging, and mounts the image read-only at finalTarget. A
// second call is a no-op since mode is already "erofs" by then.
func (b *ErofsBackend) Commit(disableUmount bool) error {
	if b.mode != "erofs_staging" {
		return nil
	}

	if err := platform.MkfsErofs(b.backingImage, b.mountPoint); err != nil {
		return fmt.Errorf("failed to create erofs image %s: %w", b.backingImage, err)
	}

	_ = platform.SetSELinuxContext(b.backingImage, "u:object_r:ksu_file:s0")

	_ = platform.Unmount(b.mountPoint, true)
	_ = os.Remove(b.mountPoint)

	if err := os.MkdirAll(b.finalTarget, 0o755); err != nil {
		return fmt.Errorf("failed to create final erofs target %s: %w", b.finalTarget, err)
	}

	if err := platform.MountErofs(b.backingImage, b.finalTarget); err != nil {
		return errs.Wrap("failed to mount erofs image", err)
	}

	_ = platform.SetPropagationPrivate(b.finalTarget)

	if !disableUmount {
		_ = b.umountManager.SendUmountable(b.finalTarget)
	}

	b.mountPoint = b.finalTarget
	b.mode = "erofs"

	return nil
}
