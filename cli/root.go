// Package cli registers hybrid-mount's subcommands on top of
// github.com/DataDrake/cli-ng/v2.
package cli

import (
	"github.com/DataDrake/cli-ng/v2/cmd"
)

func init() {
	cmd.Register(&cmd.Help)
}

// Root is the root command for hybrid-mount.
var Root = cmd.Root{
	Name:  "hybrid-mount",
	Short: "Hybrid Mount Metamodule",
	Flags: &GlobalFlags{},
}

// GlobalFlags are available to every sub-command.
type GlobalFlags struct {
	Config      string `short:"c" long:"config" desc:"Path to config.toml"`
	ModuleDir   string `short:"m" long:"moduledir" desc:"Override the module inventory root"`
	MountSource string `short:"s" long:"mountsource" desc:"Override the overlay/tmpfs mount source label"`
	Partitions  string `short:"p" long:"partitions" desc:"Restrict to this comma-separated partition list"`
}
