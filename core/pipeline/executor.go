package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/magic"
	"github.com/hybridmount/hybrid-mount/core/overlay"
	"github.com/hybridmount/hybrid-mount/core/planner"
	"github.com/hybridmount/hybrid-mount/core/platform"
)

// ExecutionResult is the Planned→Executed transition's output: the
// surviving overlay and magic module id sets, deduplicated and
// mutually exclusive.
type ExecutionResult struct {
	OverlayModuleIDs []string
	MagicModuleIDs   []string
}

// executeState runs the overlay engine over plan, demoting any op that
// fails at its root to magic-mount, then runs the magic engine over the
// union of planner-assigned and demoted ids.
func executeState(cfg config.Config, modules []inventory.Module, plan planner.MountPlan, tempdir string, umountManager UmountManager) (ExecutionResult, error) {
	finalMagic := toStringSet(plan.MagicModuleIDs)
	finalOverlay := map[string]bool{}

	supported, err := platform.OverlaySupported()
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("failed to probe overlay support: %w", err)
	}

	if supported {
		eng := overlay.New(cfg.MountSource, cfg.DisableUmount, umountManager)

		for _, op := range plan.OverlayOps {
			involved := moduleIDsFromLowerdirs(op.Lowerdirs)

			if err := eng.Mount(op); err != nil {
				for _, id := range involved {
					finalMagic[id] = true
				}

				continue
			}

			for _, id := range involved {
				finalOverlay[id] = true
			}
		}

		for id := range finalMagic {
			delete(finalOverlay, id)
		}
	} else {
		for id := range plan.OverlayModuleIDs {
			finalMagic[id] = true
		}
	}

	if len(finalMagic) > 0 {
		queue := sortedKeys(finalMagic)

		magicModules := filterModules(modules, queue)

		mounted, err := magic.New().Mount(magicModules, tempdir, magicNeedsErofsWorkspace(cfg))
		if err != nil {
			finalMagic = map[string]bool{}
		} else {
			mountedSet := toStringSet(mounted)

			for id := range finalMagic {
				if !mountedSet[id] {
					delete(finalMagic, id)
				}
			}
		}
	}

	_ = platform.Unmount(tempdir, true)

	if !cfg.DisableUmount {
		_ = umountManager.SendUmountable(tempdir)
		_ = umountManager.Commit()
	}

	return ExecutionResult{
		OverlayModuleIDs: sortedKeys(finalOverlay),
		MagicModuleIDs:   sortedKeys(finalMagic),
	}, nil
}

// magicNeedsErofsWorkspace reports whether the configured storage
// backend is EROFS, the only mode where the magic workspace needs its
// own tmpfs mount rather than a plain staging directory.
func magicNeedsErofsWorkspace(cfg config.Config) bool {
	return cfg.OverlayMode == config.OverlayErofs
}

func moduleIDsFromLowerdirs(lowerdirs []string) []string {
	ids := make([]string, 0, len(lowerdirs))

	for _, l := range lowerdirs {
		ids = append(ids, filepath.Base(l))
	}

	return ids
}

func filterModules(modules []inventory.Module, ids []string) []inventory.Module {
	want := toStringSet(ids)

	var out []inventory.Module

	for _, m := range modules {
		if want[m.ID] {
			out = append(out, m)
		}
	}

	return out
}

func toStringSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))

	for _, i := range items {
		out[i] = true
	}

	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))

	for k := range set {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
