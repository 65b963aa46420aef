package planner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/planner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// S1 — tmpfs success path: m_b (higher priority, scanned first) and m_a
// each contribute system/, lowerdirs ordered priority-descending.
func TestGenerateOrdersLowerdirsByPriority(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "system", "m_b", "bin", "a"), "b")
	writeFile(t, filepath.Join(root, "system", "m_a", "bin", "a"), "a")

	modules := []inventory.Module{
		{ID: "m_b", Partitions: []string{"system"}},
		{ID: "m_a", Partitions: []string{"system"}},
	}

	plan, err := planner.Generate(config.Default(), modules, root)
	require.NoError(t, err)
	require.Len(t, plan.OverlayOps, 1)

	op := plan.OverlayOps[0]
	assert.Equal(t, "system", op.PartitionName)

	want := []string{
		filepath.Join(root, "system", "m_b"),
		filepath.Join(root, "system", "m_a"),
	}
	assert.Equal(t, want, op.Lowerdirs)

	assert.True(t, plan.OverlayModuleIDs["m_a"])
	assert.True(t, plan.OverlayModuleIDs["m_b"])
}

// S5 — winnowing: both modules contribute the same file; the winnowing
// table forces m_a even though it is the lower-priority contender.
func TestGenerateWinnowingForcesContender(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "system", "m_b", "lib64", "libfoo.so"), "b")
	writeFile(t, filepath.Join(root, "system", "m_a", "lib64", "libfoo.so"), "a")

	modules := []inventory.Module{
		{ID: "m_b", Partitions: []string{"system"}},
		{ID: "m_a", Partitions: []string{"system"}},
	}

	cfg := config.Default()
	cfg.Winnowing.SetRule("/system/lib64/libfoo.so", "m_a")

	plan, err := planner.Generate(cfg, modules, root)
	require.NoError(t, err)
	require.Len(t, plan.Conflicts, 1)

	c := plan.Conflicts[0]
	assert.Equal(t, "lib64/libfoo.so", c.RelativePath)
	assert.Equal(t, "m_a", c.Selected)
	assert.True(t, c.IsForced)
	assert.Equal(t, []string{"m_b", "m_a"}, c.ContendingModules)
}

// Winnowing entries that don't name an actual contender never set
// IsForced, per the planner's forced-selection invariant.
func TestGenerateWinnowingIgnoredWhenNotAContender(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "system", "m_b", "lib64", "libfoo.so"), "b")
	writeFile(t, filepath.Join(root, "system", "m_a", "lib64", "libfoo.so"), "a")

	modules := []inventory.Module{
		{ID: "m_b", Partitions: []string{"system"}},
		{ID: "m_a", Partitions: []string{"system"}},
	}

	cfg := config.Default()
	cfg.Winnowing.SetRule("/system/lib64/libfoo.so", "m_nonexistent")

	plan, err := planner.Generate(cfg, modules, root)
	require.NoError(t, err)
	require.Len(t, plan.Conflicts, 1)

	c := plan.Conflicts[0]
	assert.False(t, c.IsForced, "expected is_forced=false when forced id is not a contender")
	assert.Equal(t, "m_a", c.Selected, "expected fallback to last contender")
}

func TestGenerateEmptyModuleDirProducesEmptyPlan(t *testing.T) {
	root := t.TempDir()

	plan, err := planner.Generate(config.Default(), nil, root)
	require.NoError(t, err)
	assert.Empty(t, plan.OverlayOps)
	assert.Empty(t, plan.Conflicts)
}

func TestGenerateMagicModeExcludesFromLowerdirs(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "system", "m_a", "bin", "a"), "a")

	modules := []inventory.Module{
		{ID: "m_a", Partitions: []string{"system"}, Rules: config.ModuleRules{DefaultMode: config.ModeMagic}},
	}

	plan, err := planner.Generate(config.Default(), modules, root)
	require.NoError(t, err)
	assert.Empty(t, plan.OverlayOps)
	assert.True(t, plan.MagicModuleIDs["m_a"])
	assert.False(t, plan.OverlayModuleIDs["m_a"], "m_a must not appear in overlay set")
}

func TestGeneratePartitionFilterExcludesModule(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "vendor", "m_a", "bin", "a"), "a")

	modules := []inventory.Module{
		{ID: "m_a", Partitions: []string{"vendor"}},
	}

	cfg := config.Default()
	cfg.Partitions = []string{"system"}

	plan, err := planner.Generate(cfg, modules, root)
	require.NoError(t, err)
	assert.Empty(t, plan.OverlayOps, "expected vendor excluded by partition filter")
}
