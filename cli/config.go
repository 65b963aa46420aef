package cli

import (
	"fmt"
	"strings"

	"github.com/hybridmount/hybrid-mount/core/config"
)

// loadConfig resolves the effective configuration for a run: an explicit
// -c/--config path takes precedence over config.LoadDefault, then
// -m/-s/-p overrides are layered on top, mirroring cli_handlers.rs's
// load_config plus the Cli struct's moduledir/mountsource/partitions
// overrides applied by its callers.
func loadConfig(g *GlobalFlags) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)

	if g.Config != "" {
		cfg, err = config.Load(g.Config)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config from custom path %s: %w", g.Config, err)
		}
	} else {
		cfg, err = config.LoadDefault()
		if err != nil {
			return config.Config{}, err
		}
	}

	if g.ModuleDir != "" {
		cfg.ModuleDir = g.ModuleDir
	}

	if g.MountSource != "" {
		cfg.MountSource = g.MountSource
	}

	if g.Partitions != "" {
		cfg.Partitions = strings.Split(g.Partitions, ",")
	}

	return cfg, nil
}
