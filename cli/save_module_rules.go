package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/DataDrake/cli-ng/v2/cmd"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/defs"
)

func init() {
	cmd.Register(&SaveModuleRules)
}

// SaveModuleRules decodes a hex-encoded JSON ModuleRules payload and
// merges it into the persisted config's Rules map, grounded on
// cli_handlers.rs's handle_save_module_rules.
var SaveModuleRules = cmd.Sub{
	Name:  "save-module-rules",
	Short: "Save per-module mount rules",
	Flags: &SaveModuleRulesFlags{},
	Run:   SaveModuleRulesRun,
}

// SaveModuleRulesFlags are flags for the "save-module-rules" sub-command.
type SaveModuleRulesFlags struct {
	Module  string `long:"module" desc:"Module id"`
	Payload string `long:"payload" desc:"Hex-encoded JSON ModuleRules"`
}

// SaveModuleRulesRun carries out the "save-module-rules" sub-command.
func SaveModuleRulesRun(_ *cmd.Root, s *cmd.Sub) {
	sFlags := s.Flags.(*SaveModuleRulesFlags) //nolint:forcetypeassert // guaranteed by callee.

	if err := validateModuleID(sFlags.Module); err != nil {
		slog.Error("invalid module id", "module", sFlags.Module, "err", err)
		os.Exit(1)
	}

	raw, err := hex.DecodeString(sFlags.Payload)
	if err != nil {
		slog.Error("failed to decode hex payload", "err", err)
		os.Exit(1)
	}

	var rules config.ModuleRules

	if err := json.Unmarshal(raw, &rules); err != nil {
		slog.Error("failed to parse module rules JSON", "err", err)
		os.Exit(1)
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		cfg = config.Default()
	}

	if cfg.Rules == nil {
		cfg.Rules = map[string]config.ModuleRules{}
	}

	cfg.Rules[sFlags.Module] = rules

	if err := cfg.Save(defs.ConfigFile); err != nil {
		slog.Error("failed to update config file with new rules", "err", err)
		os.Exit(1)
	}

	fmt.Printf("Module rules saved for %s into config.toml\n", sFlags.Module)
}

// validateModuleID rejects ids that could escape the module directory
// root: empty ids, ids containing a path separator, and "." or "..".
// Other characters and names are accepted.
func validateModuleID(id string) error {
	if id == "" {
		return fmt.Errorf("module id must not be empty")
	}

	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return fmt.Errorf("module id must not contain path separators or be a relative reference")
	}

	return nil
}
