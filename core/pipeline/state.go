package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hybridmount/hybrid-mount/core/defs"
)

// RuntimeState is the executor's terminal artifact, persisted
// best-effort to defs.StateFile at Finalize.
type RuntimeState struct {
	StorageMode      string   `json:"storage_mode"`
	MountPoint       string   `json:"mount_point"`
	OverlayModuleIDs []string `json:"overlay_module_ids"`
	MagicModuleIDs   []string `json:"magic_module_ids"`
	ActiveMounts     []string `json:"active_mounts"`
}

// NewRuntimeState builds a RuntimeState with its module id sets sorted
// and the partition list deduplicated and sorted, matching the
// ModulesReady/Executed invariant that state sets are always normalized
// before persistence.
func NewRuntimeState(storageMode, mountPoint string, overlayIDs, magicIDs, activeMounts []string) RuntimeState {
	overlay := append([]string{}, overlayIDs...)
	magic := append([]string{}, magicIDs...)

	sort.Strings(overlay)
	sort.Strings(magic)

	active := dedupSorted(activeMounts)

	return RuntimeState{
		StorageMode:      storageMode,
		MountPoint:       mountPoint,
		OverlayModuleIDs: overlay,
		MagicModuleIDs:   magic,
		ActiveMounts:     active,
	}
}

func dedupSorted(items []string) []string {
	seen := map[string]bool{}

	var out []string

	for _, i := range items {
		if seen[i] {
			continue
		}

		seen[i] = true

		out = append(out, i)
	}

	sort.Strings(out)

	return out
}

// Save writes the state as JSON to defs.StateFile. Best-effort by
// convention of every caller in this package — errors are returned for
// callers that want to log them, never surfaced as pipeline failures.
func (s RuntimeState) Save() error {
	return s.SaveTo(defs.StateFile)
}

// SaveTo writes the state as JSON to path, atomically via a temp file +
// rename.
func (s RuntimeState) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal runtime state: %w", err)
	}

	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write runtime state: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize runtime state file: %w", err)
	}

	return nil
}

// LoadRuntimeState reads a previously persisted state file.
func LoadRuntimeState(path string) (RuntimeState, error) {
	var state RuntimeState

	data, err := os.ReadFile(path)
	if err != nil {
		return state, fmt.Errorf("failed to read runtime state %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to parse runtime state %s: %w", path, err)
	}

	return state, nil
}
