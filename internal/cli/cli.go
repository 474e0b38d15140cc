// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and top-level handlers for socratic.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdStatus
	CmdConversations
	CmdSuggest
	CmdExport
	CmdServe
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdStatus:
		return "status"
	case CmdConversations:
		return "conversations"
	case CmdSuggest:
		return "suggest"
	case CmdExport:
		return "export"
	case CmdServe:
		return "serve"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Local   bool // refuse non-loopback backends
	Quiet   bool
	Verbose bool
	JSON    bool

	// Config file overriding ~/.socratic/config.toml
	ConfigFile string

	// Command-specific
	ConversationID string
	Subcommand     string
	ConfigKey      string
	ConfigVal      string
	Format         string
	Output         string
	Addr           string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `socratic - terminal client for the Socratic AI tutor

The tutor answers with guiding questions instead of final answers.

Usage:
  socratic [id]                    Start the TUI (default), optionally on a conversation
  socratic chat [id]               Line-mode chat
  socratic status, s               Show service health
  socratic conversations, ls       List your conversations
  socratic suggest                 Suggest a project from your recent questions
  socratic export <id>             Export a conversation transcript
    --format markdown|json|html    Output format (default: markdown)
    -o, --output FILE              Output file (default: generated name)
  socratic serve                   Run the development backend
    --addr HOST:PORT               Listen address (default: server.addr)
  socratic config [show|get|set|path|init]
  socratic version                 Show version information
  socratic help                    Show this help

Global flags:
  --local                          Only talk to loopback backends
  --config FILE                    Use FILE instead of ~/.socratic/config.toml
  --json                           JSON output for status, conversations and version
  -q, --quiet                      Minimal output
  -v, --verbose                    Debug logging

Environment:
  SOCRATIC_HOME                    Configuration directory (default: ~/.socratic)
  SOCRATIC_TOKEN                   Bearer token for the env identity source
  SOCRATIC_BACKEND_BASE_URL        Backend base URL

Examples:
  socratic
  socratic chat 5f1c2a
  socratic export 5f1c2a --format html -o gravity.html
  socratic config set backend.base_url http://127.0.0.1:8000
`

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv without the program name.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]
	args.Raw = rest

	switch cmd {
	case "tui":
		args.ConversationID = NewArgParser(rest).Positional(0)
		return CmdTUI, args

	case "chat", "c":
		args.ConversationID = NewArgParser(rest).Positional(0)
		return CmdChat, args

	case "status", "s":
		return CmdStatus, args

	case "conversations", "ls", "list":
		return CmdConversations, args

	case "suggest", "project":
		return CmdSuggest, args

	case "export":
		p := NewArgParser(rest)
		args.ConversationID = p.Positional(0)
		args.Format = p.FlagOrDefault("format", "")
		args.Output = p.Flag("output")
		if args.Output == "" {
			args.Output = p.Flag("o")
		}
		return CmdExport, args

	case "serve", "server":
		args.Addr = NewArgParser(rest).Flag("addr")
		return CmdServe, args

	case "config":
		p := NewArgParser(rest)
		args.Subcommand = p.Subcommand()
		args.ConfigKey = p.Positional(1)
		args.ConfigVal = strings.Join(p.PositionalFrom(2), " ")
		return CmdConfig, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args
	}

	// A bare argument that is not a command opens that conversation.
	if !strings.HasPrefix(cmd, "-") && len(rest) == 0 && SuggestCommand(cmd) == "" {
		args.ConversationID = remaining[0]
		return CmdTUI, args
	}

	args.Raw = remaining
	return CmdUnknown, args
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--local", "--offline":
			parsed.Local = true
		case "-q", "--quiet":
			parsed.Quiet = true
		case "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsed.ConfigFile = args[i]
			}
		default:
			if v, ok := strings.CutPrefix(arg, "--config="); ok {
				parsed.ConfigFile = v
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	// -v is --version as the first word and --verbose anywhere else
	if len(remaining) > 1 {
		kept := remaining[:1]
		for _, arg := range remaining[1:] {
			if arg == "-v" {
				parsed.Verbose = true
				continue
			}
			kept = append(kept, arg)
		}
		remaining = kept
	}

	return remaining, parsed
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// VersionData is the JSON shape of `socratic version --json`.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if args.JSON {
		return NewJSONResponse("version", data).Print()
	}
	fmt.Printf("socratic %s\n", data.Version)
	if !args.Quiet {
		fmt.Printf("  commit:   %s\n", data.GitCommit)
		fmt.Printf("  built:    %s\n", data.BuildDate)
		fmt.Printf("  go:       %s\n", data.GoVersion)
		fmt.Printf("  platform: %s\n", data.Platform)
	}
	return nil
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// HandleUnknown reports an unknown command with a suggestion.
func HandleUnknown(args Args) error {
	word := ""
	if len(args.Raw) > 0 {
		word = args.Raw[0]
	}
	msg := fmt.Sprintf("unknown command %q", word)
	if s := SuggestCommand(word); s != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return &UsageError{Message: msg}
}
