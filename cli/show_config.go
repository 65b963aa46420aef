package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/DataDrake/cli-ng/v2/cmd"
)

func init() {
	cmd.Register(&ShowConfig)
}

// ShowConfig prints the effective configuration as JSON, grounded on
// cli_handlers.rs's handle_show_config.
var ShowConfig = cmd.Sub{
	Name:  "show-config",
	Short: "Print the effective configuration as JSON",
	Run:   ShowConfigRun,
}

// ShowConfigRun carries out the "show-config" sub-command.
func ShowConfigRun(r *cmd.Root, _ *cmd.Sub) {
	rFlags := r.Flags.(*GlobalFlags) //nolint:forcetypeassert // guaranteed by callee.

	cfg, err := loadConfig(rFlags)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		slog.Error("failed to serialize config to JSON", "err", err)
		os.Exit(1)
	}

	fmt.Println(string(out))
}
