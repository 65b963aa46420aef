//go:build linux

package platform

import "os"

// ksuMarkerPath and apatchMarkerPath are the filesystem fingerprints used to
// detect which privileged root framework hybrid-mount is running under.
const (
	ksuMarkerPath    = "/data/adb/ksu"
	apatchMarkerPath = "/data/adb/apatch"
)

// DetectRootManager returns "KSU", "APatch", or "" (unknown) based on
// which privileged root framework's marker directory is present. Called
// once at pipeline construction; the result is threaded by value from
// then on, never re-probed.
func DetectRootManager() string {
	if _, err := os.Stat(ksuMarkerPath); err == nil {
		return "KSU"
	}

	if _, err := os.Stat(apatchMarkerPath); err == nil {
		return "APatch"
	}

	return ""
}

// NukePath recursively unmounts and clears nested mounts under path,
// the cleanup KSU needs before reusing an ext4 image's mount point.
// Best-effort: walks mount points under path, deepest first, and
// force-unmounts each.
func NukePath(path string) {
	points, err := MountPointsUnder(path)
	if err != nil {
		return
	}

	for i := len(points) - 1; i >= 0; i-- {
		_ = Unmount(points[i], true)
	}

	_ = Unmount(path, true)
}
