// Package storage provisions the staging area that holds lowerdirs,
// picking among tmpfs, a loop-mounted ext4 image, and a loop-mounted
// EROFS image built from a tmpfs staging copy, with capability probing
// and fallback.
package storage

// Backend is the small capability set every storage implementation
// shares: {commit, mount_point, mode}. Three implementers (tmpfs, ext4,
// erofs staging) rather than a class hierarchy.
type Backend interface {
	Commit(disableUmount bool) error
	MountPoint() string
	Mode() string
}

// Handle wraps the active Backend, the uniform object the rest of the
// pipeline threads through without caring which backend is underneath.
type Handle struct {
	Backend Backend
}

func (h *Handle) Commit(disableUmount bool) error { return h.Backend.Commit(disableUmount) }
func (h *Handle) MountPoint() string              { return h.Backend.MountPoint() }
func (h *Handle) Mode() string                    { return h.Backend.Mode() }
