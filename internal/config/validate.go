// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/localmode"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found,
// aggregated in a *multierror.Error.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(field, format string, args ...any) {
		result = multierror.Append(result, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// ==========================================================================
	// Backend
	// ==========================================================================

	if err := localmode.ValidateURL(c.Backend.BaseURL); err != nil {
		add("backend.base_url", "%q: %v", c.Backend.BaseURL, err)
	}
	if c.Backend.TimeoutSecs < 0 {
		add("backend.timeout_secs", "must be >= 0, got %d", c.Backend.TimeoutSecs)
	}
	if c.Backend.ChatTimeoutSecs < 0 {
		add("backend.chat_timeout_secs", "must be >= 0, got %d", c.Backend.ChatTimeoutSecs)
	}

	// ==========================================================================
	// Health
	// ==========================================================================

	if c.Health.PollIntervalSecs < 1 || c.Health.PollIntervalSecs > 3600 {
		add("health.poll_interval_secs", "must be between 1 and 3600, got %d", c.Health.PollIntervalSecs)
	}

	// ==========================================================================
	// Identity
	// ==========================================================================

	switch c.Identity.Source {
	case IdentityStatic:
		if strings.TrimSpace(c.Identity.Token) == "" {
			add("identity.token", "required when identity.source is static")
		}
	case IdentityEnv:
		if c.Identity.TokenEnv == "" {
			add("identity.token_env", "required when identity.source is env")
		}
	case IdentityFile:
		if c.Identity.TokenFile == "" {
			add("identity.token_file", "required when identity.source is file")
		}
	default:
		add("identity.source", "invalid source %q, must be one of: static, env, file", c.Identity.Source)
	}

	// ==========================================================================
	// UI and logging
	// ==========================================================================

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme %q, must be one of: auto, dark, light", c.UI.Theme)
	}
	if c.UI.SidebarWidth < 12 || c.UI.SidebarWidth > 80 {
		add("ui.sidebar_width", "must be between 12 and 80, got %d", c.UI.SidebarWidth)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		add("logging.level", "invalid level %q", c.Logging.Level)
	}

	// ==========================================================================
	// Server
	// ==========================================================================

	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must be >= 0")
	}
	if c.Server.OllamaURL != "" {
		if err := localmode.ValidateURL(c.Server.OllamaURL); err != nil {
			add("server.ollama_url", "%q: %v", c.Server.OllamaURL, err)
		}
	}
	if c.Server.FallbackURL != "" {
		if err := localmode.ValidateURL(c.Server.FallbackURL); err != nil {
			add("server.fallback_url", "%q: %v", c.Server.FallbackURL, err)
		}
	}
	for token, user := range c.Server.Tokens {
		if strings.TrimSpace(token) == "" || strings.TrimSpace(user) == "" {
			add("server.tokens", "token and user must both be non-empty")
			break
		}
	}

	return result.ErrorOrNil()
}
