// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"fmt"

	"github.com/jeranaias/socratic-tui/internal/config"
)

// FromConfig builds the provider selected by cfg.Source.
func FromConfig(cfg config.IdentityConfig) (Provider, error) {
	user := User{ID: cfg.UserID, Email: cfg.Email, DisplayName: cfg.DisplayName}

	switch cfg.Source {
	case config.IdentityStatic:
		if cfg.Token == "" {
			return NewStatic(nil, ""), nil
		}
		return NewStatic(&user, cfg.Token), nil
	case config.IdentityEnv, "":
		name := cfg.TokenEnv
		if name == "" {
			name = "SOCRATIC_TOKEN"
		}
		return NewEnv(name, user), nil
	case config.IdentityFile:
		if cfg.TokenFile == "" {
			return nil, fmt.Errorf("%w: file source needs token_file", ErrUnknownSource)
		}
		return NewFile(cfg.TokenFile), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}
