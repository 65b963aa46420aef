// Package magic implements the bind-mount fallback composition strategy
// for modules the planner or overlay engine could not route through
// kernel overlayfs: per-file bind mounts layered over a scratch
// workspace instead of a single overlay root.
package magic

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/platform"
)

// Engine composes bind mounts for modules escalated to magic-mount.
type Engine struct{}

// New returns a magic-mount Engine.
func New() *Engine { return &Engine{} }

// Mount composes modules (already filtered to the magic-only set, in
// inventory priority order) into the live partitions they contribute to.
// root is the synced staging mount point (module content lives at
// root/<partition>/<id>); isErofsStaging selects between a fresh tmpfs
// workspace and a plain directory. It returns the subset of module ids
// that were fully composed without error — callers drop the rest from
// the final magic id set.
func (e *Engine) Mount(modules []inventory.Module, root string, isErofsStaging bool) ([]string, error) {
	workspace := filepath.Join(root, "magic_workspace")

	if isErofsStaging {
		if mounted, _ := platform.Mounted(workspace); !mounted {
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create magic workspace %s: %w", workspace, err)
			}

			if err := platform.MountTmpfs(workspace, "magic"); err != nil {
				return nil, fmt.Errorf("failed to mount magic workspace tmpfs: %w", err)
			}
		}
	} else if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create magic workspace %s: %w", workspace, err)
	}

	mountedPaths := map[string]bool{}

	var succeeded []string

	for _, m := range modules {
		ok := true

		for _, partition := range m.Partitions {
			src := filepath.Join(root, partition, m.ID)

			if _, err := os.Stat(src); os.IsNotExist(err) {
				continue
			}

			if err := composePartition(src, partition, mountedPaths); err != nil {
				ok = false

				break
			}
		}

		if ok {
			succeeded = append(succeeded, m.ID)
		}
	}

	return succeeded, nil
}

// composePartition bind-mounts every file under src onto its mirrored
// live path under /<partition>, skipping any target already claimed by
// a higher-priority module. Directory collisions therefore follow
// caller iteration order, the same priority order the planner uses.
func composePartition(src, partition string, mountedPaths map[string]bool) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}

		if rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)
		target := filepath.Join("/", partition, rel)

		if mountedPaths[target] {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if _, statErr := os.Stat(target); os.IsNotExist(statErr) {
				if mkErr := os.MkdirAll(target, 0o755); mkErr != nil {
					return fmt.Errorf("failed to create magic target dir %s: %w", target, mkErr)
				}
			}

			return nil
		}

		if _, statErr := os.Stat(target); os.IsNotExist(statErr) {
			if mkErr := os.MkdirAll(filepath.Dir(target), 0o755); mkErr != nil {
				return fmt.Errorf("failed to create magic target parent %s: %w", target, mkErr)
			}

			f, createErr := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, 0o644)
			if createErr != nil {
				return fmt.Errorf("failed to create magic placeholder %s: %w", target, createErr)
			}

			_ = f.Close()
		}

		if err := platform.BindMove(path, target); err != nil {
			return fmt.Errorf("failed to bind mount %s onto %s: %w", path, target, err)
		}

		mountedPaths[target] = true

		return nil
	})
}
