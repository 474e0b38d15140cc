// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers for socratic.
//
// # Key Types
//
//   - Command: every top-level command
//   - Args: parsed global and command-specific flags
//   - App: the config, logger, API client and identity provider a command runs with
//   - JSONResponse: the envelope printed by --json
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdTUI:
//	    cli.Exit(cli.HandleTUI(args))
//	case cli.CmdChat:
//	    cli.Exit(cli.HandleChat(args))
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - (default), tui: full-screen chat with a conversation sidebar
//   - chat: line-mode chat
//   - status: service health
//   - conversations: the signed-in user's conversation list
//   - suggest: a holistic project built from recent questions
//   - export: a conversation as markdown, JSON or HTML
//   - serve: the development backend
//   - config: show, get and set configuration
//
// Handlers return errors; Exit maps them to exit codes with GetExitCode.
package cli
