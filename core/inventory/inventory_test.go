package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/inventory"
)

func mkModule(t *testing.T, root, id string, partitions ...string) {
	t.Helper()

	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for _, p := range partitions {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, p), 0o755))
	}
}

func TestScanOrdersDescendingAndSkipsMarked(t *testing.T) {
	root := t.TempDir()

	mkModule(t, root, "m_a", "system")
	mkModule(t, root, "m_b", "system")
	mkModule(t, root, "m_c") // no partitions: dropped
	mkModule(t, root, "m_d", "vendor")

	require.NoError(t, os.WriteFile(filepath.Join(root, "m_d", "disable"), nil, 0o644))

	cfg := config.Default()

	modules, err := inventory.Scan(root, cfg)
	require.NoError(t, err)
	require.Len(t, modules, 2)

	assert.Equal(t, "m_b", modules[0].ID)
	assert.Equal(t, "m_a", modules[1].ID)
}

func TestScanDetectsReplaceMarker(t *testing.T) {
	root := t.TempDir()

	mkModule(t, root, "m_a", "system")

	replaceDir := filepath.Join(root, "m_a", "system", "app", "Foo")
	require.NoError(t, os.MkdirAll(replaceDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(replaceDir, ".replace"), nil, 0o644))

	modules, err := inventory.Scan(root, config.Default())
	require.NoError(t, err)
	require.Len(t, modules[0].ReplaceDirs, 1)
	assert.Equal(t, "system/app/Foo", modules[0].ReplaceDirs[0])
}
