package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmount/hybrid-mount/core/config"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	want := config.Default()
	want.ModuleDir = "/data/adb/modules"
	want.Partitions = []string{"system", "vendor"}
	want.Rules["m_a"] = config.ModuleRules{
		DefaultMode: config.ModeOverlay,
		Paths:       map[string]config.MountMode{"lib64/libfoo.so": config.ModeMagic},
	}
	want.Winnowing.SetRule("/system/lib64/libfoo.so", "m_a")

	require.NoError(t, want.Save(path))

	got, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, want.ModuleDir, got.ModuleDir)
	assert.Equal(t, config.ModeOverlay, got.Rules["m_a"].DefaultMode)

	id, ok := got.Winnowing.Preferred("/system/lib64/libfoo.so")
	require.True(t, ok)
	assert.Equal(t, "m_a", id)
}

func TestLoadErrorsWhenMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := config.Load(filepath.Join(dir, "does-not-exist.toml"))
	assert.Error(t, err, "expected error for missing file")
}
