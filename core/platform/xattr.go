//go:build linux

package platform

import (
	"golang.org/x/sys/unix"

	"github.com/hybridmount/hybrid-mount/core/defs"
)

// setFileConXattr sets the security.selinux xattr directly, the fallback
// path SetSELinuxContext uses when the go-selinux library reports an
// error (e.g. no LSM enabled on the running kernel).
func setFileConXattr(path, ctx string) error {
	return unix.Lsetxattr(path, "security.selinux", []byte(ctx), 0)
}

// SetOpaque tags dir with the overlay opaque xattr, so the kernel treats
// it as a whiteout boundary instead of merging with lower partitions —
// the ".replace" module directory semantics. No engine in this module
// calls it.
func SetOpaque(dir string) error {
	return unix.Lsetxattr(dir, defs.ReplaceDirXattr, []byte("y"), 0)
}
