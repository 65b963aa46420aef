package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/hybridmount/hybrid-mount/core/defs"
	"github.com/hybridmount/hybrid-mount/core/inventory"
	"github.com/hybridmount/hybrid-mount/core/planner"
)

func init() {
	cmd.Register(&Diagnostics)
}

// Diagnostics scans the inventory, generates a plan, and prints the
// resulting diagnostics as JSON, grounded on cli_handlers.rs's
// handle_diagnostics.
var Diagnostics = cmd.Sub{
	Name:  "diagnostics",
	Short: "Report non-fatal planner observations",
	Run:   DiagnosticsRun,
}

// DiagnosticsRun carries out the "diagnostics" sub-command.
func DiagnosticsRun(r *cmd.Root, _ *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.

	cfg, err := loadConfig(rFlags)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	modules, err := inventory.Scan(cfg.ModuleDir, cfg)
	if err != nil {
		slog.Error("failed to scan modules for diagnostics", "err", err)
		os.Exit(1)
	}

	plan, err := planner.Generate(cfg, modules, defs.MountBase)
	if err != nil {
		slog.Error("failed to generate plan for diagnostics", "err", err)
		os.Exit(1)
	}

	out, err := json.Marshal(plan.Diagnostics)
	if err != nil {
		slog.Error("failed to serialize diagnostics report", "err", err)
		os.Exit(1)
	}

	fmt.Println(string(out))
}
