// Package defs holds the fixed filesystem paths, partition tables, and
// marker names that every other core package is built against.
package defs

const (
	// MountBase is the staging root storage.Setup provisions and the
	// overlay/magic engines compose lowerdirs underneath.
	MountBase = "/data/adb/hybrid-mount/mnt"
	// ModulesImgFile is the default ext4/erofs backing image path.
	ModulesImgFile = "/data/adb/hybrid-mount/modules.img"
	// RunDir holds staging directories, scoped to a single run.
	RunDir = "/data/adb/hybrid-mount/run/"
	// StateFile is where the executor persists RuntimeState.
	StateFile = "/data/adb/hybrid-mount/run/daemon_state.json"
	// SystemRWDir holds per-partition upperdir/workdir pairs.
	SystemRWDir = "/data/adb/hybrid-mount/rw"
	// ModulePropFile is the property file surfaced to the host root manager.
	ModulePropFile = "/data/adb/modules/hybrid_mount/module.prop"
	// ModulesDir is the default module inventory root.
	ModulesDir = "/data/adb/modules"
	// ConfigFile is the default TOML configuration path.
	ConfigFile = "/data/adb/hybrid-mount/config.toml"
	// MkfsErofsPath is the bundled mkfs.erofs binary, falling back to PATH.
	MkfsErofsPath = "/data/adb/metamodule/tools/mkfs.erofs"

	// ZygiskSUDenylistFile names the adjacent zygisk denylist-enforcement
	// collaborator. hybrid-mount has no zygisk integration; this constant
	// exists purely so diagnostics can name the file when a module
	// requests process-scoped isolation this agent cannot provide.
	ZygiskSUDenylistFile = "/data/adb/zygisksu/denylist_enforce"
)

// Module root marker file names.
const (
	DisableFileName   = "disable"
	RemoveFileName    = "remove"
	SkipMountFileName = "skip_mount"

	// ReplaceDirFileName marks a module directory as "replace, don't merge".
	// The inventory records marked directories in Module.ReplaceDirs; the
	// overlay and magic-mount engines do not read that list, so no opaque
	// xattr is set for them during a run.
	ReplaceDirFileName = ".replace"
	// ReplaceDirXattr is the xattr set on an opaque directory.
	ReplaceDirXattr = "trusted.overlay.opaque"
)

// Fixed directory names excluded from module inventory scans.
const (
	MetaModuleDirName = "meta-hybrid"
	LostFoundDirName  = "lost+found"
	GitDirName        = ".git"
)

// BuiltinPartitions is the fixed, ordered set of partitions hybrid-mount
// knows how to compose. Order here is only a canonical listing; priority
// among contributing modules is governed by inventory scan order, not by
// this slice's order.
var BuiltinPartitions = []string{
	"system", "vendor", "product", "system_ext", "odm", "oem", "apex",
	"mi_ext", "my_bigball", "my_carrier", "my_company", "my_engineering",
	"my_heytap", "my_manifest", "my_preload", "my_product", "my_region",
	"my_reserve", "my_stock", "optics", "prism",
}

// SensitivePartitions is BuiltinPartitions minus "system".
var SensitivePartitions = func() []string {
	out := make([]string, 0, len(BuiltinPartitions)-1)

	for _, p := range BuiltinPartitions {
		if p != "system" {
			out = append(out, p)
		}
	}

	return out
}()

// IgnoreUnmountPartitions lists target paths whose overlay mount source
// name is always the literal "overlay" rather than config.MountSource.
var IgnoreUnmountPartitions = []string{
	"/vendor/lib", "/vendor/lib64", "/system/lib", "/system/lib64",
}

// MaxOverlayLayers is the largest layer count (lowerdirs plus the stock
// root) the overlay engine mounts as a single overlay; above it, tail
// layers are collapsed into intermediate staging overlays.
const MaxOverlayLayers = 64

// DefaultSELinuxContext is applied to generic tree walks during ext4 image
// provisioning.
const DefaultSELinuxContext = "u:object_r:system_file:s0"

// ImageSELinuxContext is applied to image files themselves (modules.img,
// the erofs image).
const ImageSELinuxContext = "u:object_r:ksu_file:s0"
