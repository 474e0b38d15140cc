// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for CLI commands.
//
// Handlers always return errors; main decides how to display them.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/jeranaias/socratic-tui/internal/api"
	"github.com/jeranaias/socratic-tui/internal/config"
	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/identity"
	"github.com/jeranaias/socratic-tui/internal/localmode"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitSecurityError = 6
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "export"
	Action  string // e.g. "write"
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is invalid command usage.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message + " (run 'socratic help' for usage)"
}

// ConfigError wraps a configuration load or validation failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps err to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var cfgErr *ConfigError
	var validationErr config.ValidationError
	var netErr net.Error

	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.Is(err, localmode.ErrNonLocalhost), errors.Is(err, localmode.ErrRemoteBlocked):
		return ExitSecurityError
	case errors.As(err, &cfgErr), errors.As(err, &validationErr):
		return ExitConfigError
	case errors.Is(err, identity.ErrNotAuthenticated), api.IsUnauthorized(err):
		return ExitAuthError
	case api.IsNotFound(err):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, conversation.ErrChatTimeout):
		return ExitTimeoutError
	case errors.As(err, &netErr):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// Exit prints err to stderr and exits with its code. A nil err is a no-op.
func Exit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("Error:"), err)
	os.Exit(GetExitCode(err))
}
