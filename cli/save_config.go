package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/defs"
)

func init() {
	cmd.Register(&SaveConfig)
}

// SaveConfig decodes a hex-encoded JSON config payload and persists it,
// grounded on cli_handlers.rs's handle_save_config. The hex+JSON payload
// shape lets a host app pass an edited config through a single
// shell-safe argument.
var SaveConfig = cmd.Sub{
	Name:  "save-config",
	Short: "Save a hex-encoded JSON config payload",
	Flags: &SaveConfigFlags{},
	Run:   SaveConfigRun,
}

// SaveConfigFlags are flags for the "save-config" sub-command.
type SaveConfigFlags struct {
	Payload string `long:"payload" desc:"Hex-encoded JSON config"`
}

// SaveConfigRun carries out the "save-config" sub-command.
func SaveConfigRun(_ *cmd.Root, s *cmd.Sub) {
	sFlags := s.Flags.(*SaveConfigFlags) //nolint:forcetypeassert // guaranteed by callee.

	raw, err := hex.DecodeString(sFlags.Payload)
	if err != nil {
		slog.Error("failed to decode hex payload", "err", err)
		os.Exit(1)
	}

	var cfg config.Config

	if err := json.Unmarshal(raw, &cfg); err != nil {
		slog.Error("failed to parse config JSON payload", "err", err)
		os.Exit(1)
	}

	if err := cfg.Save(defs.ConfigFile); err != nil {
		slog.Error("failed to save config file", "err", err)
		os.Exit(1)
	}

	fmt.Println("Configuration saved successfully.")
}
