package inventory

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/hybridmount/hybrid-mount/core/defs"
)

// UpdateDescription rewrites defs.ModulePropFile's description line with
// the storage mode and overlay/magic module counts, surfacing the
// pipeline's outcome to the host root manager. Best-effort: callers are
// expected to ignore errors at the call site per the pipeline's
// best-effort persistence convention, but the error is still returned so
// tests can assert on it directly.
func UpdateDescription(storageMode string, overlayCount, magicCount int) error {
	return updateDescriptionAt(defs.ModulePropFile, storageMode, overlayCount, magicCount)
}

func updateDescriptionAt(path, storageMode string, overlayCount, magicCount int) error {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true, Insensitive: false}, path)
	if err != nil {
		return fmt.Errorf("failed to load module property file %s: %w", path, err)
	}

	sec := cfg.Section("")
	sec.Key("description").SetValue(fmt.Sprintf(
		"hybrid-mount: storage=%s overlay_modules=%d magic_modules=%d",
		storageMode, overlayCount, magicCount,
	))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create module property directory: %w", err)
	}

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save module property file %s: %w", path, err)
	}

	return nil
}
