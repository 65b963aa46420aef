//go:build linux

package platform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moby/sys/mountinfo"
)

// Mounted reports whether path is itself a mount point, grounded on the
// pack's use of mountinfo.Mounted for exactly this check.
func Mounted(path string) (bool, error) {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		return false, fmt.Errorf("failed to check mount state of %s: %w", path, err)
	}

	return mounted, nil
}

// MountPointsUnder returns the sorted, deduplicated set of mount points
// strictly under root, read from /proc/self/mountinfo. The overlay
// engine calls this before mounting the root overlay so sub-mount
// discovery sees the stock layout.
func MountPointsUnder(root string) ([]string, error) {
	infos, err := mountinfo.GetMounts(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read mountinfo: %w", err)
	}

	prefix := strings.TrimSuffix(root, "/") + "/"

	seen := map[string]bool{}

	var out []string

	for _, info := range infos {
		if info.Mountpoint == root {
			continue
		}

		if !strings.HasPrefix(info.Mountpoint, prefix) {
			continue
		}

		if seen[info.Mountpoint] {
			continue
		}

		seen[info.Mountpoint] = true

		out = append(out, info.Mountpoint)
	}

	sort.Strings(out)

	return out, nil
}
