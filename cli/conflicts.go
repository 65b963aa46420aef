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
	cmd.Register(&Conflicts)
}

// Conflicts scans the inventory, generates a plan against the staging
// root, and prints the resulting conflict report as JSON, grounded on
// cli_handlers.rs's handle_conflicts.
var Conflicts = cmd.Sub{
	Name:  "conflicts",
	Short: "Report path conflicts among contributing modules",
	Run:   ConflictsRun,
}

// ConflictsRun carries out the "conflicts" sub-command.
func ConflictsRun(r *cmd.Root, _ *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.

	cfg, err := loadConfig(rFlags)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	modules, err := inventory.Scan(cfg.ModuleDir, cfg)
	if err != nil {
		slog.Error("failed to scan modules for conflict analysis", "err", err)
		os.Exit(1)
	}

	plan, err := planner.Generate(cfg, modules, defs.MountBase)
	if err != nil {
		slog.Error("failed to generate plan for conflict analysis", "err", err)
		os.Exit(1)
	}

	out, err := json.Marshal(plan.Conflicts)
	if err != nil {
		slog.Error("failed to serialize conflict report", "err", err)
		os.Exit(1)
	}

	fmt.Println(string(out))
}
