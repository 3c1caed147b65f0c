// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection command for the loom CLI.
//
// Command: config
// Subcommands:
//   show    Print the effective configuration (defaults + file + env)
//   path    Print the config file path
//   init    Write a default config file if none exists

package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/loom-tui/internal/config"
)

// HandleConfigCommand handles the "config" command.
func HandleConfigCommand(args *ArgParser) error {
	// Positional 0 is "config" itself
	switch args.Positional(1) {
	case "", "show":
		return configShow()
	case "path":
		return configPath()
	case "init":
		return configInit()
	default:
		return fmt.Errorf("unknown config subcommand %q (show, path, init)", args.Positional(1))
	}
}

// configShow prints the effective configuration as TOML.
func configShow() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// SECURITY: never echo credentials
	if cfg.Connection.APIKey != "" {
		cfg.Connection.APIKey = "<redacted>"
	}

	return toml.NewEncoder(os.Stdout).Encode(cfg)
}

// configPath prints the config file path and whether it exists.
func configPath() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	fmt.Println(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, mutedStyle.Render("(not created yet; run: loom config init)"))
	}
	return nil
}

// configInit writes a default config file, refusing to overwrite one that
// already exists.
func configInit() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := config.Save(config.Default()); err != nil {
		return err
	}

	fmt.Printf("%s wrote %s\n", commandStyle.Render("[OK]"), path)
	return nil
}
