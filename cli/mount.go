package cli

import (
	"log/slog"
	"os"

	"github.com/DataDrake/cli-ng/v2/cmd"
	"github.com/cheggaaa/pb/v3"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/defs"
	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/pipeline"
	"github.com/hybridmount/hybrid-mount/core/platform"
	"github.com/hybridmount/hybrid-mount/core/sync"
)

func init() {
	cmd.Register(&Mount)
}

// Mount drives the full pipeline: storage provisioning, module
// inventory scan and sync, plan generation, execution and finalization.
// It is the entry point an init script or daemon invokes once per boot;
// the other sub-commands only inspect or edit configuration.
var Mount = cmd.Sub{
	Name:  "mount",
	Short: "Provision storage and mount every contributing module",
	Run:   MountRun,
}

// MountRun carries out the "mount" sub-command.
func MountRun(r *cmd.Root, _ *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.

	cfg, err := loadConfig(rFlags)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	lock, err := pipeline.NewLockFile(defs.RunDir + "hybrid-mount.lock")
	if err != nil {
		slog.Error("failed to open lock file", "err", err)
		os.Exit(1)
	}

	if err := lock.Lock(); err != nil {
		slog.Error("another hybrid-mount run is already active",
			"owner_pid", lock.GetOwnerPID(), "owner_process", lock.GetOwnerProcess(), "err", err)
		os.Exit(1)
	}

	defer func() {
		_ = lock.Unlock()
		_ = lock.Clean()
	}()

	rootManagerKind := config.RootManagerKind(platform.DetectRootManager())

	// Tempdir tracks the storage handle's eventual mount point: the common
	// tmpfs/ext4 case mounts directly at defs.MountBase, which is what the
	// executor later unmounts once every lowerdir/bind source is pinned.
	c := pipeline.New(cfg, defs.MountBase, pipeline.NoopUmountManager(), rootManagerKind)

	bar := newSyncProgressBar(cfg)
	if bar != nil {
		c.SyncProgress = func() { bar.Increment() }
	}

	storageReady, err := pipeline.InitStorage(c, defs.MountBase, defs.ModulesImgFile)
	if err != nil {
		slog.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}

	modulesReady, err := pipeline.ScanAndSync(storageReady)
	if err != nil {
		slog.Error("failed to scan and sync modules", "err", err)
		os.Exit(1)
	}

	if bar != nil {
		bar.Finish()
	}

	planned, err := pipeline.GeneratePlan(modulesReady)
	if err != nil {
		slog.Error("failed to generate mount plan", "err", err)
		os.Exit(1)
	}

	executed, err := pipeline.Execute(planned)
	if err != nil {
		slog.Error("failed to execute mount plan", "err", err)
		os.Exit(1)
	}

	if err := pipeline.Finalize(executed); err != nil {
		slog.Error("failed to finalize mount run", "err", err)
		os.Exit(1)
	}

	slog.Info("mount run complete",
		"overlay_modules", len(executed.State.Result.OverlayModuleIDs),
		"magic_modules", len(executed.State.Result.MagicModuleIDs))
}

// newSyncProgressBar sizes a progress bar against a preliminary
// inventory scan, the way cli/init.go's downloadImage drives a
// pb.ProgressBar off an HTTP response's content length. Returns nil on
// a non-interactive run (no TTY) or when there is nothing to sync.
func newSyncProgressBar(cfg config.Config) *pb.ProgressBar {
	if !onTTY() {
		return nil
	}

	modules, err := inventory.Scan(cfg.ModuleDir, cfg)
	if err != nil {
		return nil
	}

	total := sync.CountFiles(modules)
	if total == 0 {
		return nil
	}

	bar := pb.New(total)
	bar.Start()

	return bar
}

func onTTY() bool {
	s, err := os.Stdout.Stat()
	if err != nil {
		return false
	}

	return s.Mode()&os.ModeCharDevice > 0
}
