package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/hybridmount/hybrid-mount/core/inventory"
)

func init() {
	cmd.Register(&Modules)
}

// Modules prints the current module inventory, grounded on
// cli_handlers.rs's handle_modules.
var Modules = cmd.Sub{
	Name:  "modules",
	Short: "List the current module inventory",
	Run:   ModulesRun,
}

// ModulesRun carries out the "modules" sub-command.
func ModulesRun(r *cmd.Root, _ *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.

	cfg, err := loadConfig(rFlags)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	listing, err := inventory.PrintList(cfg)
	if err != nil {
		slog.Error("failed to list modules", "err", err)
		os.Exit(1)
	}

	fmt.Print(listing)
}
