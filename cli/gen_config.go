package cli

import (
	"log/slog"
	"os"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/defs"
)

func init() {
	cmd.Register(&GenConfig)
}

// GenConfig writes a fresh, default config.toml to disk, grounded on
// cli_handlers.rs's handle_gen_config.
var GenConfig = cmd.Sub{
	Name:  "gen-config",
	Short: "Write a default config.toml",
	Flags: &GenConfigFlags{},
	Run:   GenConfigRun,
}

// GenConfigFlags are flags for the "gen-config" sub-command.
type GenConfigFlags struct {
	Output string `short:"o" long:"output" desc:"Destination path, defaults to the standard config location"`
}

// GenConfigRun carries out the "gen-config" sub-command.
func GenConfigRun(_ *cmd.Root, s *cmd.Sub) {
	sFlags := s.Flags.(*GenConfigFlags) //nolint:forcetypeassert // guaranteed by callee.

	output := sFlags.Output
	if output == "" {
		output = defs.ConfigFile
	}

	if err := config.Default().Save(output); err != nil {
		slog.Error("failed to save generated config", "path", output, "err", err)
		os.Exit(1)
	}
}
