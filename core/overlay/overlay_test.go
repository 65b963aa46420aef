package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountSourceForOverridesLibraryPaths(t *testing.T) {
	e := New("KSU", false, nil)

	assert.Equal(t, "overlay", e.mountSourceFor("/system/lib64"))
	assert.Equal(t, "KSU", e.mountSourceFor("/system"))
}

func TestDirExistsReportsMissingAndPresentDirs(t *testing.T) {
	root := t.TempDir()

	upper := filepath.Join(root, "upperdir")
	work := filepath.Join(root, "workdir")

	assert.False(t, dirExists(upper), "expected missing upperdir to report false")

	require.NoError(t, os.MkdirAll(upper, 0o755))
	assert.False(t, dirExists(work), "expected missing workdir to report false")

	require.NoError(t, os.MkdirAll(work, 0o755))
	assert.True(t, dirExists(upper))
	assert.True(t, dirExists(work))
}
