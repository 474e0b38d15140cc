// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command.
//
// Command: config [show|get|set|keys|path|init]
//
// Examples:
//
//	socratic config                                 Show the effective config
//	socratic config get backend.base_url
//	socratic config set backend.base_url http://127.0.0.1:8000
//	socratic config set health.gate_submit false
//	socratic config init                            Write a default config file
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/socratic-tui/internal/config"
)

// HandleConfig runs a config subcommand.
func HandleConfig(args Args) error {
	return runConfig(args, os.Stdout)
}

func runConfig(args Args, out io.Writer) error {
	switch args.Subcommand {
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config show", cfg).To(out).Print()
		}
		fmt.Fprintln(out, cfg.String())
		return nil

	case "get":
		return configGet(args, out)

	case "set":
		return configSet(args, out)

	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(out, k)
		}
		return nil

	case "path":
		path, err := configFilePath(args)
		if err != nil {
			return err
		}
		if args.JSON {
			_, statErr := os.Stat(path)
			return NewJSONResponse("config path", map[string]any{
				"path":   path,
				"exists": statErr == nil,
			}).To(out).Print()
		}
		fmt.Fprintln(out, path)
		return nil

	case "init":
		return configInit(args, out)

	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q", args.Subcommand)}
	}
}

// configFilePath is the file config commands read and write.
func configFilePath(args Args) (string, error) {
	if args.ConfigFile != "" {
		return args.ConfigFile, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}

func configGet(args Args, out io.Writer) error {
	if args.ConfigKey == "" {
		return &UsageError{Message: "usage: socratic config get <key>"}
	}
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	v, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return &ConfigError{Err: err}
	}
	if config.IsSecretKey(args.ConfigKey) {
		v = config.Redacted
	}
	if args.JSON {
		return NewJSONResponse("config get", map[string]any{"key": args.ConfigKey, "value": v}).To(out).Print()
	}
	fmt.Fprintln(out, v)
	return nil
}

func configSet(args Args, out io.Writer) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return &UsageError{Message: "usage: socratic config set <key> <value>"}
	}
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return &ConfigError{Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	path, err := configFilePath(args)
	if err != nil {
		return err
	}
	if err := config.EnsureConfigDir(); err != nil {
		return &ConfigError{Err: err}
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return &ConfigError{Err: err}
	}

	shown := args.ConfigVal
	if config.IsSecretKey(args.ConfigKey) {
		shown = config.Redacted
	}
	if !args.Quiet {
		fmt.Fprintf(out, "%s %s = %s\n", SuccessStyle.Render("Set"), args.ConfigKey, shown)
	}
	return nil
}

func configInit(args Args, out io.Writer) error {
	path, err := configFilePath(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return &ConfigError{Err: fmt.Errorf("%s already exists", path)}
	} else if !errors.Is(err, os.ErrNotExist) {
		return &ConfigError{Err: err}
	}
	if err := config.EnsureConfigDir(); err != nil {
		return &ConfigError{Err: err}
	}
	if err := config.SaveTo(config.Default(), path); err != nil {
		return &ConfigError{Err: err}
	}
	if !args.Quiet {
		fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("Wrote"), path)
	}
	return nil
}
