// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/health"
	"github.com/jeranaias/socratic-tui/internal/ui/components"
)

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes every component from the terminal dimensions.
func (m *Model) layout() {
	m.showSidebar = m.width >= minSidebarScreen
	if !m.showSidebar && m.sidebarFocus {
		m.setSidebarFocus(false)
	}

	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)

	// header, input border, input, status bar
	chrome := 4
	if adv := m.advisoryView(); adv != "" {
		chrome += lipgloss.Height(adv)
	}
	bodyHeight := m.height - chrome
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	chatWidth := m.width
	if m.showSidebar {
		m.panel.SetSize(m.opts.SidebarWidth, bodyHeight)
		// panel border plus the gutter
		chatWidth -= m.opts.SidebarWidth + 2
	}
	if chatWidth < 20 {
		chatWidth = 20
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = bodyHeight
	m.list.SetWidth(chatWidth)
	m.input.Width = m.width - lipgloss.Width(m.input.Prompt) - 1
}

// render rebuilds the transcript. bottom scrolls to the newest message.
func (m *Model) render(bottom bool) {
	var content string
	if m.resolved && m.ctrl.User() == nil {
		content = m.theme.Notice.Render(SignInNotice)
	} else {
		content = m.list.Render(m.ctrl.Messages())
	}
	m.viewport.SetContent(content)
	if bottom {
		m.viewport.GotoBottom()
	}
}

// syncPanel copies the sidebar state into the panel component.
func (m *Model) syncPanel() {
	items := m.sidebar.Items()
	entries := make([]components.SidebarEntry, len(items))
	for i, it := range items {
		entries[i] = components.SidebarEntry{ID: it.ID, Title: it.DisplayTitle()}
	}
	m.panel.SetEntries(entries, m.sidebar.Cursor(), m.sidebar.Active())
}

// =============================================================================
// VIEW
// =============================================================================

func (m Model) advisoryView() string {
	text := health.Advisory(m.ctrl.Health())
	if text == "" {
		return ""
	}
	return m.theme.Advisory.Width(m.width - 2).Render(text)
}

func (m Model) activity() string {
	switch {
	case m.ctrl.State() == conversation.StateLoadingHistory:
		return "Loading conversation"
	case m.ctrl.State() == conversation.StateSubmitting:
		return "Waiting for the tutor"
	case m.ctrl.Suggesting():
		return "Thinking of a project"
	}
	return ""
}

// View renders the chat screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header.View())
	b.WriteString("\n")

	if adv := m.advisoryView(); adv != "" {
		b.WriteString(adv)
		b.WriteString("\n")
	}

	body := m.viewport.View()
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.panel.View(), " ", body)
	}
	b.WriteString(body)
	b.WriteString("\n")

	b.WriteString(m.theme.InputContainer.Width(m.width).Render(m.input.View()))
	b.WriteString("\n")

	_, reason := m.ctrl.CanSubmit()
	m.status.Activity = m.activity()
	m.status.Spinner = m.spinner.View()
	m.status.Reason = reason
	m.status.Notice = m.notice
	b.WriteString(m.status.View())

	return b.String()
}
