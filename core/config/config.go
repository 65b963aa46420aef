// Package config defines the persistent root configuration, loaded from
// and saved to a TOML file via github.com/BurntSushi/toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/hybridmount/hybrid-mount/core/defs"
	"github.com/hybridmount/hybrid-mount/core/winnow"
)

// MountMode is the per-module or per-path mount strategy.
type MountMode string

const (
	ModeAuto    MountMode = "auto"
	ModeOverlay MountMode = "overlay"
	ModeMagic   MountMode = "magic"
)

// OverlayMode selects which storage backend provisioning prefers.
type OverlayMode string

const (
	OverlayAuto  OverlayMode = "Auto"
	OverlayTmpfs OverlayMode = "Tmpfs"
	OverlayExt4  OverlayMode = "Ext4"
	OverlayErofs OverlayMode = "Erofs"
)

// RootManagerKind identifies the privileged root framework hybrid-mount
// is running under. Computed once at pipeline construction and passed by
// value thereafter — never read from a package global.
type RootManagerKind string

const (
	RootManagerUnknown RootManagerKind = ""
	RootManagerKSU     RootManagerKind = "KSU"
	RootManagerAPatch  RootManagerKind = "APatch"
)

// ModuleRules holds the default mode for a module plus any per-path
// overrides. Mutated only through the config save operation; paths are
// relative and normalized (no leading "/", no "..").
type ModuleRules struct {
	DefaultMode MountMode            `toml:"default_mode" json:"default_mode"`
	Paths       map[string]MountMode `toml:"paths"         json:"paths"`
}

// EffectiveMode resolves the mode for relPath, falling back to DefaultMode.
func (r ModuleRules) EffectiveMode(relPath string) MountMode {
	if m, ok := r.Paths[relPath]; ok {
		return m
	}

	if r.DefaultMode == "" {
		return ModeAuto
	}

	return r.DefaultMode
}

// Config is the persistent root configuration.
type Config struct {
	ModuleDir     string                 `toml:"moduledir"      json:"moduledir"`
	MountSource   string                 `toml:"mountsource"    json:"mountsource"`
	OverlayMode   OverlayMode            `toml:"overlay_mode"   json:"overlay_mode"`
	DisableUmount bool                   `toml:"disable_umount" json:"disable_umount"`
	Partitions    []string               `toml:"partitions"     json:"partitions"`
	Rules         map[string]ModuleRules `toml:"rules"          json:"rules"`
	Winnowing     winnow.Table           `toml:"winnowing"      json:"winnowing"`
}

// Default returns the configuration used when no config file exists yet,
// mirroring builder/config.go's NewConfig's sane-defaults-first approach.
func Default() Config {
	return Config{
		ModuleDir:     defs.ModulesDir,
		MountSource:   "KSU",
		OverlayMode:   OverlayAuto,
		DisableUmount: false,
		Partitions:    nil,
		Rules:         map[string]ModuleRules{},
		Winnowing:     winnow.Table{},
	}
}

// Load reads path and decodes it as TOML, filling in empty maps so
// callers never see a nil Rules/Winnowing map.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config from %s: %w", path, err)
	}

	if cfg.Rules == nil {
		cfg.Rules = map[string]ModuleRules{}
	}

	if cfg.Winnowing == nil {
		cfg.Winnowing = winnow.Table{}
	}

	return cfg, nil
}

// LoadDefault loads defs.ConfigFile, falling back to Default() when the
// file does not exist.
func LoadDefault() (Config, error) {
	cfg, err := Load(defs.ConfigFile)
	if err == nil {
		return cfg, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return Config{}, fmt.Errorf("failed to load default config from %s: %w", defs.ConfigFile, err)
}

// Save writes cfg to path atomically: encode to a temp file in the same
// directory, then rename over the destination.
func (c Config) Save(path string) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}

	tmpPath := tmp.Name()

	defer os.Remove(tmpPath)

	if err := toml.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to publish config to %s: %w", path, err)
	}

	return nil
}

// SaveDefault saves cfg to defs.ConfigFile.
func (c Config) SaveDefault() error {
	return c.Save(defs.ConfigFile)
}
