// Package inventory scans the module directory, filters disabled/skip
// modules, and discovers which builtin partitions each module
// contributes, the way builder/profile.go globs and loads repo profiles
// but generalized from TOML-profile files to directory-marker scanning.
package inventory

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/defs"
)

// Module is a directory <moduledir>/<id> contributing files to one or
// more system partitions. Discovered fresh every run; immutable
// thereafter.
type Module struct {
	ID         string
	SourcePath string
	Partitions []string
	Rules      config.ModuleRules
	Mode       config.MountMode

	// ReplaceDirs are module-root-relative directories marked with
	// defs.ReplaceDirFileName, signalling "replace, don't merge"
	// semantics. Recorded here only: the overlay and magic-mount engines
	// do not consult this list or set trusted.overlay.opaque.
	ReplaceDirs []string
}

var excludedDirNames = map[string]bool{
	defs.MetaModuleDirName: true,
	defs.LostFoundDirName:  true,
	defs.GitDirName:        true,
}

func hasMarker(dir string) bool {
	for _, name := range []string{defs.DisableFileName, defs.RemoveFileName, defs.SkipMountFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}

	return false
}

// Scan lists direct subdirectories of moduleDir, drops fixed names and
// any directory carrying a disable/remove/skip_mount marker, computes
// each module's contributed partitions, and returns the survivors sorted
// by id descending — the inventory's load-bearing priority convention:
// higher ids are resolved first.
func Scan(moduleDir string, cfg config.Config) ([]Module, error) {
	entries, err := os.ReadDir(moduleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read module directory %s: %w", moduleDir, err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		if excludedDirNames[e.Name()] {
			continue
		}

		names = append(names, e.Name())
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	modules := make([]Module, 0, len(names))

	for _, name := range names {
		dir := filepath.Join(moduleDir, name)

		if hasMarker(dir) {
			continue
		}

		partitions := contributedPartitions(dir)
		if len(partitions) == 0 {
			continue
		}

		rules := cfg.Rules[name]

		mode := rules.DefaultMode
		if mode == "" {
			mode = config.ModeAuto
		}

		replaceDirs, err := findReplaceDirs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan replace markers for %s: %w", name, err)
		}

		modules = append(modules, Module{
			ID:          name,
			SourcePath:  dir,
			Partitions:  partitions,
			Rules:       rules,
			Mode:        mode,
			ReplaceDirs: replaceDirs,
		})
	}

	return modules, nil
}

func contributedPartitions(moduleDir string) []string {
	var out []string

	for _, p := range defs.BuiltinPartitions {
		st, err := os.Stat(filepath.Join(moduleDir, p))
		if err == nil && st.IsDir() {
			out = append(out, p)
		}
	}

	return out
}

func findReplaceDirs(moduleDir string) ([]string, error) {
	var out []string

	err := filepath.WalkDir(moduleDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if _, statErr := os.Stat(filepath.Join(path, defs.ReplaceDirFileName)); statErr == nil {
			rel, relErr := filepath.Rel(moduleDir, path)
			if relErr != nil {
				return relErr
			}

			out = append(out, filepath.ToSlash(rel))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// PrintList formats the current inventory as aligned text, the way a
// CLI "modules" command surfaces it to an operator.
func PrintList(cfg config.Config) (string, error) {
	modules, err := Scan(cfg.ModuleDir, cfg)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	for _, m := range modules {
		fmt.Fprintf(w, "%s\tmode=%s\tpartitions=%s\n", m.ID, m.Mode, strings.Join(m.Partitions, ","))
	}

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to format module list: %w", err)
	}

	return b.String(), nil
}
