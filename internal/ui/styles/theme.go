// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the lipgloss theme for the chat TUI and CLI output.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/socratic-tui/internal/model"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER AND STATUS
	// ==========================================================================

	Header        lipgloss.Style
	HeaderTitle   lipgloss.Style
	StatusOnline  lipgloss.Style
	StatusSlow    lipgloss.Style
	StatusOffline lipgloss.Style
	Advisory      lipgloss.Style
	LocalBadge    lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorLabel     lipgloss.Style
	UserText       lipgloss.Style
	ErrorText      lipgloss.Style
	Source         lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarActive   lipgloss.Style

	// ==========================================================================
	// INPUT AND FOOTER
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Placeholder    lipgloss.Style
	Spinner        lipgloss.Style
	Hint           lipgloss.Style
	ShortcutKey    lipgloss.Style
	Notice         lipgloss.Style
}

// NewTheme builds the theme for mode (auto, dark or light). Auto asks the
// terminal for its background.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case ModeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ModeLight:
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.StatusOnline = lipgloss.NewStyle().Bold(true).Foreground(Emerald)
	t.StatusSlow = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.StatusOffline = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.Advisory = lipgloss.NewStyle().
		Foreground(Amber).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Amber).
		PaddingLeft(1)
	t.LocalBadge = lipgloss.NewStyle().Bold(true).Foreground(Emerald)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.ErrorLabel = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.UserText = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose).PaddingLeft(2)
	t.Source = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SidebarSelected = lipgloss.NewStyle().Foreground(TextPrimary).Background(SelectionBg)
	t.SidebarActive = lipgloss.NewStyle().Bold(true).Foreground(Purple)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.Placeholder = lipgloss.NewStyle().Italic(true).Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)
	t.Notice = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
}

// StatusStyle returns the header style for a health status.
func (t *Theme) StatusStyle(status model.HealthStatus) lipgloss.Style {
	switch status {
	case model.StatusOnline:
		return t.StatusOnline
	case model.StatusSlow:
		return t.StatusSlow
	default:
		return t.StatusOffline
	}
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}
