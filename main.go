// socratic - A terminal client for the Socratic AI tutor.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"github.com/jeranaias/socratic-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = cli.HandleTUI(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdConversations:
		err = cli.HandleConversations(args)
	case cli.CmdSuggest:
		err = cli.HandleSuggest(args)
	case cli.CmdExport:
		err = cli.HandleExport(args)
	case cli.CmdServe:
		err = cli.HandleServe(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		err = cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		err = cli.HandleUnknown(args)
	}
	cli.Exit(err)
}
