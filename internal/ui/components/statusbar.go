// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/socratic-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Hint is one shortcut shown in the status bar.
type Hint struct {
	Key  string
	Desc string
}

// StatusBar is the line under the input.
type StatusBar struct {
	Width int

	// Activity is shown with the spinner frame while a request runs.
	Activity string
	Spinner  string

	// Reason explains why sending is disabled.
	Reason string

	// Notice is a transient message, for example a failed refresh.
	Notice string

	Hints []Hint

	theme *styles.Theme
}

// NewStatusBar creates a StatusBar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// SetWidth updates the width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the bar. Hints that do not fit are dropped from the right.
func (s *StatusBar) View() string {
	var left string
	switch {
	case s.Activity != "":
		left = s.theme.Spinner.Render(s.Spinner) + " " + s.theme.Notice.Render(s.Activity)
	case s.Notice != "":
		left = s.theme.Notice.Render(s.Notice)
	case s.Reason != "":
		left = s.theme.Hint.Render(styles.StatusIndicators.Info + " " + s.Reason)
	}

	budget := s.Width - lipgloss.Width(left) - 2
	var hints []string
	for _, h := range s.Hints {
		part := s.theme.ShortcutKey.Render(h.Key) + " " + s.theme.Hint.Render(h.Desc)
		w := lipgloss.Width(part) + 2
		if w > budget {
			break
		}
		budget -= w
		hints = append(hints, part)
	}

	right := strings.Join(hints, "  ")
	gap := s.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
