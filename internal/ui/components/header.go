// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/socratic-tui/internal/localmode"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// DefaultTitle is the brand shown on the left of the header.
const DefaultTitle = "Socratic AI"

// Header is the title bar.
type Header struct {
	Title string
	User  string // empty when signed out
	Width int

	health *model.ServiceHealth
	theme  *styles.Theme
}

// NewHeader creates a Header with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: DefaultTitle,
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetUser updates the user label.
func (h *Header) SetUser(label string) {
	h.User = label
}

// SetHealth updates the service status. Nil means no check has completed.
func (h *Header) SetHealth(s *model.ServiceHealth) {
	h.health = s
}

// StatusText returns the indicator and label for the current health.
func (h *Header) StatusText() string {
	if h.health == nil {
		return styles.StatusIndicators.Info + " Checking status"
	}
	switch {
	case h.health.IsOnline():
		return styles.StatusIndicators.Success + " " + h.health.Summary()
	case h.health.IsSlow():
		return styles.StatusIndicators.Warning + " " + h.health.Summary()
	default:
		return styles.StatusIndicators.Error + " " + h.health.Summary()
	}
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 40 {
		width = 40
	}

	left := h.theme.HeaderTitle.Render(h.Title)
	if h.User != "" {
		left += h.theme.Hint.Render("  " + h.User)
	}

	status := h.StatusText()
	if h.health != nil {
		status = h.theme.StatusStyle(h.health.Status).Render(status)
	} else {
		status = h.theme.Hint.Render(status)
	}

	right := status
	if badge := localmode.StatusIndicator(); badge != "" {
		right = h.theme.LocalBadge.Render("["+badge+"]") + " " + status
	}

	inner := width - h.theme.Header.GetHorizontalFrameSize()
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return h.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
