package magic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// composePartition's bind-mount calls require root, so this only covers
// the workspace-provisioning path that runs ahead of any mount syscall.
func TestMountProvisionsWorkspaceWithNoModules(t *testing.T) {
	root := t.TempDir()

	mounted, err := New().Mount(nil, root, false)
	require.NoError(t, err)
	assert.Empty(t, mounted)

	_, err = os.Stat(filepath.Join(root, "magic_workspace"))
	assert.NoError(t, err, "expected magic_workspace directory to exist")
}
