//go:build linux

package platform

import (
	"fmt"

	selinux "github.com/opencontainers/selinux/go-selinux"
)

// SetSELinuxContext relabels path with ctx, preferring the
// go-selinux library and falling back to a direct xattr set when
// SELinux support is compiled out or the kernel has no LSM enabled.
func SetSELinuxContext(path, ctx string) error {
	if err := selinux.SetFileLabel(path, ctx); err != nil {
		if fallbackErr := setFileConXattr(path, ctx); fallbackErr != nil {
			return fmt.Errorf("failed to set selinux context %s on %s: %w", ctx, path, err)
		}
	}

	return nil
}
