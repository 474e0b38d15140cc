// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/socratic-tui/internal/ui/styles"
	"github.com/jeranaias/socratic-tui/internal/util"
)

// =============================================================================
// SIDEBAR PANEL COMPONENT
// =============================================================================

// SidebarEntry is one row of the panel.
type SidebarEntry struct {
	ID    string
	Title string
}

// SidebarPanel renders the conversation list.
type SidebarPanel struct {
	Width   int
	Height  int
	Focused bool

	entries []SidebarEntry
	cursor  int
	active  string
	theme   *styles.Theme
}

// NewSidebarPanel creates a SidebarPanel.
func NewSidebarPanel(theme *styles.Theme) *SidebarPanel {
	return &SidebarPanel{Width: 28, Height: 20, theme: theme}
}

// SetSize updates the panel dimensions.
func (p *SidebarPanel) SetSize(width, height int) {
	p.Width = width
	p.Height = height
}

// SetEntries replaces the rows. cursor is the highlighted index.
func (p *SidebarPanel) SetEntries(entries []SidebarEntry, cursor int, active string) {
	p.entries = entries
	p.cursor = cursor
	p.active = active
}

// View renders the panel.
func (p *SidebarPanel) View() string {
	inner := p.Width - p.theme.Sidebar.GetHorizontalFrameSize()
	if inner < 8 {
		inner = 8
	}

	lines := []string{p.theme.SidebarTitle.Render("Conversations"), ""}

	newLabel := "+ New chat"
	if p.active == "" {
		lines = append(lines, p.theme.SidebarActive.Render(newLabel))
	} else {
		lines = append(lines, p.theme.SidebarItem.Render(newLabel))
	}

	if len(p.entries) == 0 {
		lines = append(lines, p.theme.Hint.Render("No conversations yet"))
	}

	// keep the cursor visible
	rows := p.Height - len(lines)
	if rows < 1 {
		rows = 1
	}
	start := 0
	if p.cursor >= rows {
		start = p.cursor - rows + 1
	}
	end := start + rows
	if end > len(p.entries) {
		end = len(p.entries)
	}

	for i := start; i < end; i++ {
		e := p.entries[i]
		title := util.PadWidth(e.Title, inner)
		switch {
		case p.Focused && i == p.cursor:
			lines = append(lines, p.theme.SidebarSelected.Render(title))
		case e.ID == p.active:
			lines = append(lines, p.theme.SidebarActive.Render(title))
		default:
			lines = append(lines, p.theme.SidebarItem.Render(title))
		}
	}

	return p.theme.Sidebar.Width(p.Width).Height(p.Height).Render(strings.Join(lines, "\n"))
}
