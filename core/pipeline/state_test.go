package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuntimeStateSortsAndDedups(t *testing.T) {
	s := NewRuntimeState("tmpfs", "/system", []string{"m_b", "m_a"}, []string{"m_c"}, []string{"vendor", "system", "system"})

	assert.Equal(t, []string{"m_a", "m_b"}, s.OverlayModuleIDs)
	assert.Equal(t, []string{"system", "vendor"}, s.ActiveMounts)
}

func TestRuntimeStateSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s := NewRuntimeState("ext4", "/data/adb/hybrid-mount/mnt", []string{"m_a"}, nil, []string{"system"})

	require.NoError(t, s.SaveTo(path))

	got, err := LoadRuntimeState(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}
