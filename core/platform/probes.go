//go:build linux

package platform

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// OverlaySupported reads /proc/config.gz looking for an uncommented
// CONFIG_OVERLAY_FS=y line.
func OverlaySupported() (bool, error) {
	f, err := os.Open("/proc/config.gz")
	if err != nil {
		return false, fmt.Errorf("failed to open /proc/config.gz: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return false, fmt.Errorf("failed to decompress /proc/config.gz: %w", err)
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "CONFIG_OVERLAY_FS=y" {
			return true, nil
		}
	}

	return false, scanner.Err()
}

// ErofsSupported reads /proc/filesystems looking for an "erofs" entry.
func ErofsSupported() bool {
	b, err := os.ReadFile("/proc/filesystems")
	if err != nil {
		return false
	}

	return strings.Contains(string(b), "erofs")
}

// XattrOverlaySupportedOn probes whether tmpfsTarget supports the
// trusted.overlay.opaque xattr overlayfs needs on a tmpfs upperdir, by
// attempting to set and then remove it on the directory itself.
func XattrOverlaySupportedOn(tmpfsTarget string) bool {
	const probeXattr = "trusted.overlay.opaque"

	if err := unix.Lsetxattr(tmpfsTarget, probeXattr, []byte("y"), 0); err != nil {
		return false
	}

	_ = unix.Lremovexattr(tmpfsTarget, probeXattr)

	return true
}
