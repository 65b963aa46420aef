package sync_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/sync"
)

func TestPerformSyncMaterializesModuleTree(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()

	modDir := filepath.Join(root, "m_a")
	sysDir := filepath.Join(modDir, "system", "bin")

	require.NoError(t, os.MkdirAll(sysDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sysDir, "tool"), []byte("hi"), 0o644))

	modules := []inventory.Module{{
		ID:         "m_a",
		SourcePath: modDir,
		Partitions: []string{"system"},
		Rules:      config.ModuleRules{},
	}}

	require.NoError(t, sync.PerformSync(modules, staging, false, nil))

	got, err := os.ReadFile(filepath.Join(staging, "system", "m_a", "bin", "tool"))
	require.NoError(t, err, "expected materialized file")
	assert.Equal(t, "hi", string(got))
}

func TestPerformSyncCreatesMagicWorkspaceForErofsStaging(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()

	modDir := filepath.Join(root, "m_a")
	require.NoError(t, os.MkdirAll(filepath.Join(modDir, "system"), 0o755))

	modules := []inventory.Module{{
		ID:         "m_a",
		SourcePath: modDir,
		Partitions: []string{"system"},
		Rules:      config.ModuleRules{DefaultMode: config.ModeMagic},
	}}

	require.NoError(t, sync.PerformSync(modules, staging, true, nil))

	_, err := os.Stat(filepath.Join(staging, "magic_workspace"))
	assert.NoError(t, err, "expected magic_workspace directory")
}
