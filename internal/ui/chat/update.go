// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/socratic-tui/internal/api"
	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/identity"
)

// Notices shown in the status bar.
const (
	SidebarFailedNotice = "Conversation list unavailable"
	SuggestFailedNotice = "Could not get a project suggestion"
	SignInFirstNotice   = "Sign in to get a project suggestion"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.render(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case userResolvedMsg:
		return m.handleUserResolved(msg)

	case identityChangedMsg:
		return m, tea.Batch(m.resolveUser(), m.waitForIdentity())

	case historyLoadedMsg:
		if m.ctrl.FinishLoad(msg.pending, msg.result) && msg.result.NotFound {
			m.sidebar.SetActive("")
		}
		m.syncPanel()
		m.render(true)
		return m, nil

	case exchangeDoneMsg:
		return m.handleExchangeDone(msg)

	case sidebarLoadedMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("conversation list refresh failed")
			m.notice = SidebarFailedNotice
		} else if m.notice == SidebarFailedNotice {
			m.notice = ""
		}
		m.syncPanel()
		return m, nil

	case suggestionMsg:
		if msg.err != nil && !errors.Is(msg.err, conversation.ErrBusy) {
			m.log.Warn().Err(msg.err).Msg("project suggestion failed")
			if errors.Is(msg.err, identity.ErrNotAuthenticated) {
				m.notice = SignInFirstNotice
			} else {
				m.notice = SuggestFailedNotice
			}
		}
		m.render(true)
		return m, nil

	case healthMsg:
		h := msg.health
		m.ctrl.SetHealth(h)
		m.header.SetHealth(&h)
		m.layout()
		if msg.fromPoller {
			return m, m.waitForHealth()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Focus):
		m.setSidebarFocus(!m.sidebarFocus)
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		m.setSidebarFocus(false)
		return m, m.newChat()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshHealth()

	case key.Matches(msg, m.keys.Suggest):
		if m.busy() {
			return m, nil
		}
		m.notice = ""
		return m, m.suggest()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.sidebarFocus {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetInput(m.input.Value())
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebar.Move(-1)
		m.syncPanel()
	case key.Matches(msg, m.keys.Down):
		m.sidebar.Move(1)
		m.syncPanel()
	case key.Matches(msg, m.keys.Open):
		ref, ok := m.sidebar.Selected()
		if !ok {
			return m, nil
		}
		m.setSidebarFocus(false)
		cmd := m.navigate(conversation.ChatRoute(ref.ID))
		return m, cmd
	}
	return m, nil
}

func (m *Model) setSidebarFocus(on bool) {
	m.sidebarFocus = on && m.showSidebar
	m.panel.Focused = m.sidebarFocus
	if m.sidebarFocus {
		m.input.Blur()
		m.status.Hints = m.keys.SidebarHints()
	} else {
		m.input.Focus()
		m.status.Hints = m.keys.ChatHints()
	}
}

// =============================================================================
// CONVERSATION FLOW
// =============================================================================

func (m Model) handleUserResolved(msg userResolvedMsg) (tea.Model, tea.Cmd) {
	user := msg.user
	if msg.err != nil {
		if !errors.Is(msg.err, identity.ErrNotAuthenticated) {
			m.log.Warn().Err(msg.err).Msg("identity lookup failed")
		}
		user = nil
	}

	route := m.ctrl.Route()
	if !m.resolved {
		route = m.opts.Route
		m.resolved = true
	}

	m.header.SetUser(user.Label())
	needLoad := m.ctrl.Navigate(user, route)
	m.sidebar.SetActive(m.ctrl.ConversationID())
	m.syncPanel()
	m.render(true)

	var load tea.Cmd
	if needLoad {
		load = m.startLoad()
	}
	return m, tea.Batch(load, m.refreshSidebar(user))
}

// navigate switches the view to route for the current user.
func (m *Model) navigate(route conversation.Route) tea.Cmd {
	needLoad := m.ctrl.Navigate(m.ctrl.User(), route)
	m.sidebar.SetActive(route.ID)
	m.input.Reset()
	m.syncPanel()
	m.render(true)
	if needLoad {
		return m.startLoad()
	}
	return nil
}

// newChat always opens a fresh new-conversation view, orphaning any
// request in flight.
func (m *Model) newChat() tea.Cmd {
	m.ctrl.StartNew()
	m.sidebar.SetActive("")
	m.input.Reset()
	m.syncPanel()
	m.render(true)
	return nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	p, ok := m.ctrl.Submit(m.input.Value())
	if !ok {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	m.render(true)
	return m, m.exchange(p)
}

func (m Model) handleExchangeDone(msg exchangeDoneMsg) (tea.Model, tea.Cmd) {
	res := m.ctrl.Finish(msg.pending, msg.result)
	if !res.Applied {
		return m, nil
	}
	if msg.result.Err != nil && api.IsUnauthorized(msg.result.Err) {
		m.log.Info().Msg("token rejected, re-resolving user")
		m.render(true)
		return m, m.resolveUser()
	}

	m.render(true)
	if !res.Adopted {
		return m, nil
	}
	m.sidebar.SetActive(res.Route.ID)
	m.syncPanel()
	return m, m.refreshSidebar(m.ctrl.User())
}

// busy reports whether a request the spinner tracks is in flight.
func (m Model) busy() bool {
	return m.ctrl.State().Busy() || m.ctrl.Suggesting()
}
