// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat.
//
// Command: chat [id]
// Aliases: c
//
// Examples:
//
//	socratic chat                 Start a new conversation
//	socratic chat 5f1c2a          Continue a conversation
//	socratic --local chat         Refuse non-loopback backends
//
// Interactive commands:
//
//	/new                Start a new conversation
//	/suggest            Suggest a project from your questions
//	/status             Show service health
//	/history            Reprint the conversation
//	/help               Show these commands
//	/quit, /q           Exit
//	Ctrl+C              Cancel the reply in flight, or exit at the prompt
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/config"
	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/health"
	"github.com/jeranaias/socratic-tui/internal/identity"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ui/styles"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing and persistent input history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor whose history lives in dir.
func NewChatCLI(dir string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads one line. Non-empty lines are added to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with 0600 permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession runs line-mode chat on a controller.
type chatSession struct {
	ctrl     *conversation.Controller
	health   *health.Poller
	user     *identity.User
	out      io.Writer
	quiet    bool
	log      zerolog.Logger
	renderer *glamour.TermRenderer

	mu     sync.Mutex
	cancel context.CancelFunc
}

// HandleChat runs the line-mode chat REPL.
func HandleChat(args Args) error {
	route, err := conversation.ParseRoute(args.ConversationID)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	app, err := Setup(args, true)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user, err := app.User(ctx)
	if err != nil {
		return err
	}

	s := &chatSession{
		ctrl:   app.Controller(),
		health: app.Poller(),
		user:   user,
		out:    os.Stdout,
		quiet:  args.Quiet,
		log:    app.Log,
	}
	if app.Config.UI.Markdown && IsStdoutTTY() {
		s.renderer = newRenderer(app.Config.UI.Theme)
	}

	s.health.OnUpdate(s.ctrl.SetHealth)
	s.health.Refresh(ctx)
	if err := s.health.Start(ctx); err != nil {
		return err
	}
	defer s.health.Stop()

	s.open(ctx, route)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	input := NewChatCLI(dir)
	defer input.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if s.cancelRequest() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		line, err := input.ReadInput(TutorStyle.Render("you> "))
		if err != nil {
			fmt.Fprintln(s.out)
			return nil
		}
		if !s.handleLine(ctx, line) {
			return nil
		}
	}
}

func newRenderer(theme string) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.NewTheme(theme).GlamourStyle()),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return nil
	}
	return r
}

// open navigates to route and prints its history.
func (s *chatSession) open(ctx context.Context, route conversation.Route) {
	if s.ctrl.Navigate(s.user, route) {
		reqCtx, done := s.requestContext(ctx)
		s.ctrl.Load(reqCtx)
		done()
	}
	if !s.quiet {
		s.printHeader()
	}
	s.printMessages(s.ctrl.Messages())
}

// handleLine processes one line of input and reports whether to keep going.
func (s *chatSession) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, "/") {
		return s.handleCommand(ctx, trimmed)
	}
	if strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
		return false
	}

	if ok, reason := s.ctrl.CanSubmit(); !ok {
		fmt.Fprintln(s.out, styles.RenderWarning(reason))
		return true
	}

	reqCtx, done := s.requestContext(ctx)
	res, ok := s.ctrl.SubmitAndWait(reqCtx, line)
	done()
	if !ok {
		return true
	}
	s.printMessage(res.Message)
	if res.Adopted && !s.quiet {
		fmt.Fprintln(s.out, DimStyle.Render("conversation "+res.Route.ID))
	}
	return true
}

func (s *chatSession) handleCommand(ctx context.Context, line string) bool {
	cmd, _, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "/quit", "/q", "/exit":
		return false

	case "/new":
		s.ctrl.StartNew()
		fmt.Fprintln(s.out, DimStyle.Render("new conversation"))

	case "/suggest":
		reqCtx, done := s.requestContext(ctx)
		msg, err := s.ctrl.SuggestProject(reqCtx)
		done()
		if err != nil {
			s.log.Warn().Err(err).Msg("project suggestion failed")
		}
		if msg.Content == "" {
			fmt.Fprintf(s.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			return true
		}
		s.printMessage(msg)

	case "/status":
		h := s.health.Current()
		fmt.Fprintln(s.out, RenderHealth(h))
		if a := health.Advisory(h); a != "" {
			fmt.Fprintln(s.out, WarningStyle.Render(a))
		}

	case "/history":
		s.printMessages(s.ctrl.Messages())

	case "/help", "/h", "/?":
		s.printHelp()

	default:
		fmt.Fprintf(s.out, "%s unknown command %s (try /help)\n", ErrorStyle.Render("[Error]"), cmd)
	}
	return true
}

// requestContext returns a context the signal handler can cancel.
func (s *chatSession) requestContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	return ctx, func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}
}

// cancelRequest cancels the request in flight, if any.
func (s *chatSession) cancelRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// =============================================================================
// OUTPUT
// =============================================================================

func (s *chatSession) printHeader() {
	fmt.Fprintln(s.out, TitleStyle.Render("Socratic AI"))
	fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Signed in as"), ValueStyle.Render(s.user.Label()))
	fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Service"), RenderHealth(s.health.Current()))
	id := s.ctrl.ConversationID()
	if id == "" {
		id = "new"
	}
	fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Conversation"), ValueStyle.Render(id))
	if a := health.Advisory(s.health.Current()); a != "" {
		fmt.Fprintln(s.out, WarningStyle.Render(a))
	}
	fmt.Fprintln(s.out, DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(s.out)
}

func (s *chatSession) printMessages(msgs []model.Message) {
	for _, m := range msgs {
		s.printMessage(m)
	}
}

func (s *chatSession) printMessage(m model.Message) {
	switch {
	case m.IsError:
		fmt.Fprintf(s.out, "%s %s\n", ErrorStyle.Render("tutor>"), m.Content)
	case m.IsUser():
		fmt.Fprintf(s.out, "%s %s\n", DimStyle.Render("you>"), m.Content)
	default:
		fmt.Fprintf(s.out, "%s %s\n", TutorStyle.Render("tutor>"), s.render(m.Content))
	}
}

func (s *chatSession) render(content string) string {
	if s.renderer == nil {
		return content
	}
	out, err := s.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(out)
}

func (s *chatSession) printHelp() {
	cmds := []struct{ name, desc string }{
		{"/new", "Start a new conversation"},
		{"/suggest", "Suggest a project from your questions"},
		{"/status", "Show service health"},
		{"/history", "Reprint the conversation"},
		{"/quit, /q", "Exit"},
	}
	for _, c := range cmds {
		fmt.Fprintf(s.out, "  %s %s\n", RenderLabel(c.name), c.desc)
	}
}
