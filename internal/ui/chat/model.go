// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/identity"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ui/components"
	"github.com/jeranaias/socratic-tui/internal/ui/styles"
)

// SignInNotice replaces the transcript while nobody is signed in.
const SignInNotice = "Sign in to start a conversation. Set a token and the chat will appear here."

// minSidebarScreen is the narrowest terminal that still shows the sidebar.
const minSidebarScreen = 70

// HealthSource publishes service health. *health.Poller satisfies it.
type HealthSource interface {
	Current() *model.ServiceHealth
	Refresh(ctx context.Context) model.ServiceHealth
	Updates() <-chan model.ServiceHealth
}

// Options configures the chat screen.
type Options struct {
	// Route is the conversation shown once the user is known.
	Route conversation.Route

	Markdown     bool
	ShowSource   bool
	SidebarWidth int

	// Health is optional. Without it the controller never receives health
	// and a gated controller keeps sending disabled.
	Health HealthSource

	// IdentityChanges is optional. Each receive re-resolves the user.
	IdentityChanges <-chan struct{}

	// RequestTimeout bounds history loads, list refreshes and suggestions.
	RequestTimeout time.Duration

	Logger zerolog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctrl     *conversation.Controller
	sidebar  *conversation.Sidebar
	provider identity.Provider
	theme    *styles.Theme
	keys     KeyMap
	opts     Options
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	header *components.Header
	list   *components.MessageList
	panel  *components.SidebarPanel
	status *components.StatusBar

	width, height int
	sidebarFocus  bool
	showSidebar   bool
	resolved      bool
	notice        string
}

// New creates the chat screen.
func New(ctrl *conversation.Controller, sidebar *conversation.Sidebar, provider identity.Provider, theme *styles.Theme, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask the tutor a question..."
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.Placeholder
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = 28
	}

	list := components.NewMessageList(theme)
	list.Markdown = opts.Markdown
	list.ShowSource = opts.ShowSource

	keys := DefaultKeyMap()
	status := components.NewStatusBar(theme)
	status.Hints = keys.ChatHints()

	header := components.NewHeader(theme)
	if opts.Health != nil {
		if h := opts.Health.Current(); h != nil {
			ctrl.SetHealth(*h)
			header.SetHealth(h)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctrl:        ctrl,
		sidebar:     sidebar,
		provider:    provider,
		theme:       theme,
		keys:        keys,
		opts:        opts,
		log:         opts.Logger.With().Str("component", "chat").Logger(),
		ctx:         ctx,
		cancel:      cancel,
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		header:      header,
		list:        list,
		panel:       components.NewSidebarPanel(theme),
		status:      status,
		width:       80,
		height:      24,
		showSidebar: true,
	}
	m.layout()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init resolves the user and starts listening for health and identity changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.resolveUser(),
		m.waitForHealth(),
		m.waitForIdentity(),
	)
}

// Controller returns the conversation controller behind the screen.
func (m Model) Controller() *conversation.Controller {
	return m.ctrl
}

// Close aborts any request still in flight.
func (m Model) Close() {
	m.cancel()
}

// =============================================================================
// COMMANDS
// =============================================================================

// requestContext derives a context bounded by RequestTimeout.
func (m Model) requestContext() (context.Context, context.CancelFunc) {
	if m.opts.RequestTimeout > 0 {
		return context.WithTimeout(m.ctx, m.opts.RequestTimeout)
	}
	return context.WithCancel(m.ctx)
}

func (m Model) resolveUser() tea.Cmd {
	provider := m.provider
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		user, err := provider.CurrentUser(ctx)
		return userResolvedMsg{user: user, err: err}
	}
}

func (m Model) waitForIdentity() tea.Cmd {
	ch := m.opts.IdentityChanges
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return identityChangedMsg{}
	}
}

func (m Model) waitForHealth() tea.Cmd {
	if m.opts.Health == nil {
		return nil
	}
	ch := m.opts.Health.Updates()
	return func() tea.Msg {
		h, ok := <-ch
		if !ok {
			return nil
		}
		return healthMsg{health: h, fromPoller: true}
	}
}

func (m Model) refreshHealth() tea.Cmd {
	src := m.opts.Health
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		return healthMsg{health: src.Refresh(ctx)}
	}
}

func (m Model) refreshSidebar(user *identity.User) tea.Cmd {
	sb := m.sidebar
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		return sidebarLoadedMsg{err: sb.Refresh(ctx, user)}
	}
}

// startLoad begins a history load if the controller wants one.
func (m Model) startLoad() tea.Cmd {
	p, ok := m.ctrl.BeginLoad()
	if !ok {
		return nil
	}
	ctrl := m.ctrl
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		return historyLoadedMsg{pending: p, result: ctrl.FetchHistory(ctx, p)}
	})
}

func (m Model) exchange(p *conversation.PendingSubmit) tea.Cmd {
	ctrl := m.ctrl
	ctx := m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return exchangeDoneMsg{pending: p, result: ctrl.Exchange(ctx, p)}
	})
}

func (m Model) suggest() tea.Cmd {
	ctrl := m.ctrl
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()
		msg, err := ctrl.SuggestProject(ctx)
		return suggestionMsg{message: msg, err: err}
	})
}
