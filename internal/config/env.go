// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SOCRATIC_"

// ApplyEnvOverrides overlays SOCRATIC_* environment variables onto c.
// Unset variables leave the current value alone.
//
// Examples:
//
//	SOCRATIC_BACKEND_BASE_URL=https://tutor.example.com
//	SOCRATIC_HEALTH_POLL_INTERVAL_SECS=10
//	SOCRATIC_IDENTITY_SOURCE=file
//	SOCRATIC_LOG_LEVEL=debug
//	SOCRATIC_SERVER_TOKENS=dev-token:ada,other:bob
func (c *Config) ApplyEnvOverrides() error {
	return c.applyEnv(nil)
}

// applyEnv parses overrides from environment, or from the process
// environment when environment is nil.
func (c *Config) applyEnv(environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}
