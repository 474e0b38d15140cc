// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for socratic.
//
// # Key Types
//
//   - Config: complete configuration with backend, health, identity, ui, logging and server sections
//   - ValidationError: one field problem; Validate aggregates them with go-multierror
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SOCRATIC_*, parsed with caarlos0/env)
//   - ~/.socratic/config.toml (or $SOCRATIC_HOME/config.toml)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := api.New(cfg.Backend.BaseURL).WithTimeout(cfg.RequestTimeout())
//
// Keys use the TOML names in dot notation:
//
//	_ = cfg.Set("health.poll_interval_secs", "10")
//	v, _ := cfg.Get("backend.base_url")
package config
