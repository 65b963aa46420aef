// Package planner turns (config, modules, staging root) into a
// MountPlan: per-partition ordered lowerdirs, the set of modules
// escalated to magic-mount, a conflict report, and diagnostics. Logic
// over the module set plus filesystem probes of the already-synced
// staging tree: a walk of each lowerdir for conflicts, and an xattr
// set-and-remove probe on the staging root for the tmpfs diagnostic.
package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/defs"
	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/platform"
)

// OverlayOperation is one partition's composed overlay: target path,
// partition name, and ordered lowerdirs (highest priority first). The
// stock root is appended implicitly by the overlay engine, not here.
type OverlayOperation struct {
	Target        string
	PartitionName string
	Lowerdirs     []string
}

// DiagnosticLevel is the severity of a planner-emitted Diagnostic.
type DiagnosticLevel string

const (
	Warning  DiagnosticLevel = "Warning"
	Critical DiagnosticLevel = "Critical"
)

// Diagnostic is a planner-emitted, non-fatal observation surfaced to
// operators via the "diagnostics" CLI command.
type Diagnostic struct {
	Level   DiagnosticLevel `json:"level"`
	Context string          `json:"context"`
	Message string          `json:"message"`
}

// ConflictDetail records, for a single relative path contributed by two
// or more modules, the priority-ordered contenders and which one the
// winnowing table selects for reporting purposes. It never reorders the
// lowerdirs overlayfs itself resolves.
type ConflictDetail struct {
	RelativePath      string   `json:"relative_path"`
	ContendingModules []string `json:"contending_modules"`
	Selected          string   `json:"selected"`
	IsForced          bool     `json:"is_forced"`
}

// MountPlan is the planner's complete output.
type MountPlan struct {
	OverlayOps       []OverlayOperation
	OverlayModuleIDs map[string]bool
	MagicModuleIDs   map[string]bool
	Conflicts        []ConflictDetail
	Diagnostics      []Diagnostic
}

// Generate builds a MountPlan from cfg, the surviving module set (in
// inventory priority order, highest priority first), and mountRoot — the
// already-synced staging root each lowerdir is relative to.
func Generate(cfg config.Config, modules []inventory.Module, mountRoot string) (MountPlan, error) {
	plan := MountPlan{
		OverlayModuleIDs: map[string]bool{},
		MagicModuleIDs:   map[string]bool{},
	}

	partitionFilter := toSet(cfg.Partitions)

	partitions := unionPartitions(modules, partitionFilter)

	for _, partition := range partitions {
		lowerdirs, magicIDs := buildLowerdirs(modules, partition, mountRoot)

		for id := range magicIDs {
			plan.MagicModuleIDs[id] = true
		}

		if len(lowerdirs) == 0 {
			if len(magicIDs) > 0 {
				plan.Diagnostics = append(plan.Diagnostics, writableStagingDiagnostic(partition)...)
			}

			continue
		}

		conflicts, err := detectConflicts(lowerdirs, cfg, partition)
		if err != nil {
			return MountPlan{}, fmt.Errorf("failed to detect conflicts for partition %s: %w", partition, err)
		}

		plan.Conflicts = append(plan.Conflicts, conflicts...)

		plan.OverlayOps = append(plan.OverlayOps, OverlayOperation{
			Target:        "/" + partition,
			PartitionName: partition,
			Lowerdirs:     lowerdirs,
		})

		for _, lower := range lowerdirs {
			plan.OverlayModuleIDs[filepath.Base(lower)] = true
		}
	}

	for id := range plan.MagicModuleIDs {
		delete(plan.OverlayModuleIDs, id)
	}

	if xattrDiag := tmpfsXattrDiagnostics(cfg, modules, mountRoot); len(xattrDiag) > 0 {
		plan.Diagnostics = append(plan.Diagnostics, xattrDiag...)
	}

	plan.Diagnostics = append(plan.Diagnostics, zygiskDiagnostics(modules)...)

	return plan, nil
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}

	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}

	return out
}

func unionPartitions(modules []inventory.Module, filter map[string]bool) []string {
	seen := map[string]bool{}

	var out []string

	for _, m := range modules {
		for _, p := range m.Partitions {
			if filter != nil && !filter[p] {
				continue
			}

			if seen[p] {
				continue
			}

			seen[p] = true

			out = append(out, p)
		}
	}

	return out
}

// buildLowerdirs returns, for partition, the ordered lowerdir paths
// (modules already in priority order) and the set of module ids whose
// contribution to this partition is magic-only and therefore excluded.
func buildLowerdirs(modules []inventory.Module, partition, mountRoot string) ([]string, map[string]bool) {
	var lowerdirs []string

	magicIDs := map[string]bool{}

	for _, m := range modules {
		contributes := false

		for _, p := range m.Partitions {
			if p == partition {
				contributes = true
				break
			}
		}

		if !contributes {
			continue
		}

		if partitionModeIsMagic(m, partition) {
			magicIDs[m.ID] = true
			continue
		}

		lowerdirs = append(lowerdirs, filepath.Join(mountRoot, partition, m.ID))
	}

	return lowerdirs, magicIDs
}

func partitionModeIsMagic(m inventory.Module, partition string) bool {
	if m.Rules.DefaultMode == config.ModeMagic {
		return true
	}

	prefix := partition + "/"

	for relPath, mode := range m.Rules.Paths {
		if mode == config.ModeMagic && (relPath == partition || hasPrefix(relPath, prefix)) {
			return true
		}
	}

	return false
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// detectConflicts walks each lowerdir's tree and records a ConflictDetail
// for every relative path present in two or more lowerdirs.
func detectConflicts(lowerdirs []string, cfg config.Config, partition string) ([]ConflictDetail, error) {
	contenders := map[string][]string{}

	for _, lower := range lowerdirs {
		moduleID := filepath.Base(lower)

		err := filepath.WalkDir(lower, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}

				return err
			}

			if d.IsDir() {
				return nil
			}

			rel, relErr := filepath.Rel(lower, path)
			if relErr != nil {
				return relErr
			}

			rel = filepath.ToSlash(rel)
			contenders[rel] = append(contenders[rel], moduleID)

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var out []ConflictDetail

	var relPaths []string

	for rel, ids := range contenders {
		if len(ids) >= 2 {
			relPaths = append(relPaths, rel)
		}
	}

	sort.Strings(relPaths)

	for _, rel := range relPaths {
		ids := contenders[rel]

		absPath := "/" + partition + "/" + rel

		selected := ids[len(ids)-1]

		isForced := false

		if forcedID, ok := cfg.Winnowing.Preferred(absPath); ok && contains(ids, forcedID) {
			selected = forcedID
			isForced = true
		}

		out = append(out, ConflictDetail{
			RelativePath:      rel,
			ContendingModules: ids,
			Selected:          selected,
			IsForced:          isForced,
		})
	}

	return out, nil
}

func contains(items []string, target string) bool {
	for _, i := range items {
		if i == target {
			return true
		}
	}

	return false
}

func writableStagingDiagnostic(partition string) []Diagnostic {
	upper := filepath.Join(defs.SystemRWDir, partition, "upperdir")
	work := filepath.Join(defs.SystemRWDir, partition, "workdir")

	if _, err := os.Stat(upper); err == nil {
		if _, err := os.Stat(work); err == nil {
			return nil
		}
	}

	return []Diagnostic{{
		Level:   Critical,
		Context: partition,
		Message: fmt.Sprintf("magic-only partition %s has no writable staging area", partition),
	}}
}

func tmpfsXattrDiagnostics(cfg config.Config, modules []inventory.Module, mountRoot string) []Diagnostic {
	if platform.XattrOverlaySupportedOn(mountRoot) {
		return nil
	}

	var out []Diagnostic

	for _, m := range modules {
		if m.Rules.DefaultMode == config.ModeOverlay {
			out = append(out, Diagnostic{
				Level:   Warning,
				Context: m.ID,
				Message: "module requested overlay mode but host tmpfs lacks xattr overlay support",
			})
		}
	}

	return out
}

func zygiskDiagnostics(modules []inventory.Module) []Diagnostic {
	if _, err := os.Stat(defs.ZygiskSUDenylistFile); err != nil {
		return nil
	}

	var out []Diagnostic

	for _, m := range modules {
		if m.Rules.DefaultMode == config.ModeMagic {
			out = append(out, Diagnostic{
				Level:   Warning,
				Context: m.ID,
				Message: fmt.Sprintf("module requests magic-mount isolation; %s is present but hybrid-mount does not integrate with zygisk denylist enforcement", defs.ZygiskSUDenylistFile),
			})
		}
	}

	return out
}
