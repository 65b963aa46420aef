// Package pipeline implements the typed, one-shot mount pipeline:
// Init → StorageReady → ModulesReady → Planned → Executed → Finalized.
// Each state is its own type, and each transition is a free function
// taking the prior state and returning the next — Go methods cannot be
// specialized per type argument, so there is no single Controller type
// with state-specific methods.
package pipeline

import (
	"fmt"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/planner"
	"github.com/hybridmount/hybrid-mount/core/storage"
	"github.com/hybridmount/hybrid-mount/core/sync"
)

// Init is the controller's starting state: configuration loaded, nothing
// mounted yet.
type Init struct{}

// StorageReady holds the provisioned storage backend.
type StorageReady struct {
	Handle *storage.Handle
}

// ModulesReady additionally holds the synced, surviving module set.
type ModulesReady struct {
	Handle  *storage.Handle
	Modules []inventory.Module
}

// Planned additionally holds the generated mount plan.
type Planned struct {
	Handle  *storage.Handle
	Modules []inventory.Module
	Plan    planner.MountPlan
}

// Executed additionally holds the executor's outcome.
type Executed struct {
	Handle *storage.Handle
	Plan   planner.MountPlan
	Result ExecutionResult
}

// Controller threads a run's configuration and temp directory through
// every state transition. S is the current pipeline state.
type Controller[S any] struct {
	Config          config.Config
	State           S
	Tempdir         string
	UmountManager   UmountManager
	RootManagerKind config.RootManagerKind

	// SyncProgress, if set, is called once per file PerformSync
	// considers during ScanAndSync — wired to a progress bar by
	// interactive callers, left nil for unattended runs.
	SyncProgress func()
}

// New builds the Init-state controller for one run.
func New(cfg config.Config, tempdir string, umountManager UmountManager, rootManagerKind config.RootManagerKind) *Controller[Init] {
	if umountManager == nil {
		umountManager = NoopUmountManager()
	}

	return &Controller[Init]{
		Config:          cfg,
		State:           Init{},
		Tempdir:         tempdir,
		UmountManager:   umountManager,
		RootManagerKind: rootManagerKind,
	}
}

func transition[From, To any](c *Controller[From], next To) *Controller[To] {
	return &Controller[To]{
		Config:          c.Config,
		State:           next,
		Tempdir:         c.Tempdir,
		UmountManager:   c.UmountManager,
		RootManagerKind: c.RootManagerKind,
		SyncProgress:    c.SyncProgress,
	}
}

// InitStorage runs D, provisioning the storage backend at mntBase/imgPath.
func InitStorage(c *Controller[Init], mntBase, imgPath string) (*Controller[StorageReady], error) {
	handle, err := storage.Setup(
		mntBase, imgPath, c.Config.ModuleDir,
		c.Config.OverlayMode == config.OverlayExt4,
		c.Config.OverlayMode == config.OverlayErofs,
		c.Config.MountSource,
		c.Config.DisableUmount,
		c.UmountManager,
		string(c.RootManagerKind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return transition[Init, StorageReady](c, StorageReady{Handle: handle}), nil
}

// ScanAndSync runs B (inventory scan) then E (sync), then commits the
// storage handle — for EROFS staging this is the point the staging
// tmpfs is packed into the final read-only image.
func ScanAndSync(c *Controller[StorageReady]) (*Controller[ModulesReady], error) {
	modules, err := inventory.Scan(c.Config.ModuleDir, c.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to scan module inventory: %w", err)
	}

	isErofsStaging := c.State.Handle.Mode() == "erofs_staging"

	if err := sync.PerformSync(modules, c.State.Handle.MountPoint(), isErofsStaging, c.SyncProgress); err != nil {
		return nil, fmt.Errorf("failed to sync module trees: %w", err)
	}

	if err := c.State.Handle.Commit(c.Config.DisableUmount); err != nil {
		return nil, fmt.Errorf("failed to commit storage backend: %w", err)
	}

	return transition[StorageReady, ModulesReady](c, ModulesReady{
		Handle:  c.State.Handle,
		Modules: modules,
	}), nil
}

// GeneratePlan runs F, the planner.
func GeneratePlan(c *Controller[ModulesReady]) (*Controller[Planned], error) {
	plan, err := planner.Generate(c.Config, c.State.Modules, c.State.Handle.MountPoint())
	if err != nil {
		return nil, fmt.Errorf("failed to generate mount plan: %w", err)
	}

	return transition[ModulesReady, Planned](c, Planned{
		Handle:  c.State.Handle,
		Modules: c.State.Modules,
		Plan:    plan,
	}), nil
}

// Execute runs G/H via the executor, demoting overlay failures to
// magic-mount and retaining only what the magic engine actually mounted.
func Execute(c *Controller[Planned]) (*Controller[Executed], error) {
	result, err := executeState(c.Config, c.State.Modules, c.State.Plan, c.Tempdir, c.UmountManager)
	if err != nil {
		return nil, fmt.Errorf("failed to execute mount plan: %w", err)
	}

	return transition[Planned, Executed](c, Executed{
		Handle: c.State.Handle,
		Plan:   c.State.Plan,
		Result: result,
	}), nil
}

// Finalize runs the terminal transition: surface the outcome to the host
// root manager's module description and persist RuntimeState. Both
// steps are best-effort and never fail the run.
func Finalize(c *Controller[Executed]) error {
	_ = inventory.UpdateDescription(
		c.State.Handle.Mode(),
		len(c.State.Result.OverlayModuleIDs),
		len(c.State.Result.MagicModuleIDs),
	)

	var activeMounts []string

	for _, op := range c.State.Plan.OverlayOps {
		activeMounts = append(activeMounts, op.PartitionName)
	}

	state := NewRuntimeState(
		c.State.Handle.Mode(),
		c.State.Handle.MountPoint(),
		c.State.Result.OverlayModuleIDs,
		c.State.Result.MagicModuleIDs,
		activeMounts,
	)

	_ = state.Save()

	return nil
}
