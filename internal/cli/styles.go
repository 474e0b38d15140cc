// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for line-mode commands.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")). // Cyan
			MarginBottom(1)

	// LabelStyle is used for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for hints and secondary text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// TutorStyle labels assistant turns in line-mode chat.
	TutorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Bold(true)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule of width w.
func RenderSeparator(w int) string {
	if w <= 0 {
		w = 60
	}
	return SeparatorStyle.Render(strings.Repeat("=", w))
}

// RenderLabel renders a fixed-width field label.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}

// RenderHealth renders a service status with its indicator.
func RenderHealth(h *model.ServiceHealth) string {
	if h == nil {
		return styles.RenderInfo("Checking status")
	}
	switch h.Status {
	case model.StatusOnline:
		return styles.RenderSuccess(h.Summary())
	case model.StatusSlow:
		return styles.RenderWarning(h.Summary())
	default:
		return styles.RenderError(h.Summary())
	}
}

// RenderTier renders one tier state from the health details.
func RenderTier(state string) string {
	switch state {
	case "":
		return DimStyle.Render("Unknown")
	case model.TierOnline:
		return styles.RenderSuccess(model.TierLabel(state))
	case model.TierNotConfigured:
		return DimStyle.Render(model.TierLabel(state))
	default:
		return styles.RenderError(model.TierLabel(state))
	}
}
