package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/planner"
	"github.com/hybridmount/hybrid-mount/core/storage"
)

type fakeBackend struct {
	mountPoint string
	mode       string
}

func (b *fakeBackend) Commit(bool) error  { return nil }
func (b *fakeBackend) MountPoint() string { return b.mountPoint }
func (b *fakeBackend) Mode() string       { return b.mode }

type fakeUmountManager struct {
	sent    []string
	commits int
}

func (m *fakeUmountManager) SendUmountable(path string) error {
	m.sent = append(m.sent, path)
	return nil
}

func (m *fakeUmountManager) Commit() error {
	m.commits++
	return nil
}

// Empty inventory boundary — no overlay ops, no magic ids: Execute/Finalize
// succeed trivially.
func TestExecuteAndFinalizeEmptyPlan(t *testing.T) {
	tempdir := t.TempDir()

	um := &fakeUmountManager{}

	c := &Controller[Planned]{
		Config: config.Default(),
		State: Planned{
			Handle: &storage.Handle{Backend: &fakeBackend{mountPoint: tempdir, mode: "tmpfs"}},
			Plan:   planner.MountPlan{OverlayModuleIDs: map[string]bool{}, MagicModuleIDs: map[string]bool{}},
		},
		Tempdir:       tempdir,
		UmountManager: um,
	}

	executed, err := Execute(c)
	require.NoError(t, err)
	assert.Empty(t, executed.State.Result.OverlayModuleIDs)
	assert.Empty(t, executed.State.Result.MagicModuleIDs)
	assert.Equal(t, 1, um.commits)

	assert.NoError(t, Finalize(executed))
}

// S4 — overlay demotion: the op's target doesn't exist, so the root
// overlay mount fails and every module contributing to that op's
// lowerdirs is demoted to magic-mount. Since the synced source trees
// also don't exist, the magic engine treats the demoted modules as
// trivially composed (nothing to bind) and retains them.
func TestExecuteDemotesFailedOverlayOpToMagic(t *testing.T) {
	tempdir := t.TempDir()

	plan := planner.MountPlan{
		OverlayOps: []planner.OverlayOperation{{
			Target:        filepath.Join(tempdir, "does-not-exist"),
			PartitionName: "system",
			Lowerdirs:     []string{filepath.Join(tempdir, "system", "m_a")},
		}},
		OverlayModuleIDs: map[string]bool{"m_a": true},
		MagicModuleIDs:   map[string]bool{},
	}

	c := &Controller[Planned]{
		Config: config.Default(),
		State: Planned{
			Handle:  &storage.Handle{Backend: &fakeBackend{mountPoint: tempdir, mode: "tmpfs"}},
			Modules: []inventory.Module{{ID: "m_a", Partitions: []string{"system"}}},
			Plan:    plan,
		},
		Tempdir:       tempdir,
		UmountManager: NoopUmountManager(),
	}

	executed, err := Execute(c)
	require.NoError(t, err)
	assert.Empty(t, executed.State.Result.OverlayModuleIDs)
	assert.Equal(t, []string{"m_a"}, executed.State.Result.MagicModuleIDs)
}

func TestNewBuildsInitControllerWithNoopManagerWhenNil(t *testing.T) {
	c := New(config.Default(), "/tmp", nil, config.RootManagerUnknown)

	require.NotNil(t, c.UmountManager)
	assert.NoError(t, c.UmountManager.SendUmountable("/x"))
}

// Finalize is best-effort: even when defs.StateFile's directory can't be
// created (e.g. read-only /data in this sandbox), it must not propagate
// an error.
func TestFinalizeNeverFails(t *testing.T) {
	root := t.TempDir()

	executed := &Controller[Executed]{
		Config: config.Default(),
		State: Executed{
			Handle: &storage.Handle{Backend: &fakeBackend{mountPoint: root, mode: "ext4"}},
			Plan: planner.MountPlan{
				OverlayOps: []planner.OverlayOperation{{PartitionName: "vendor"}, {PartitionName: "system"}},
			},
			Result: ExecutionResult{OverlayModuleIDs: []string{"m_a"}, MagicModuleIDs: nil},
		},
	}

	assert.NoError(t, Finalize(executed), "Finalize must swallow its own errors")
}
