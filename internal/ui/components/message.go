// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE LIST COMPONENT
// =============================================================================

// EmptyText is shown when there is nothing to display.
const EmptyText = "Ask a question to start. The tutor answers with questions of its own."

// MessageList renders the transcript.
type MessageList struct {
	Width      int
	Markdown   bool
	ShowSource bool

	theme *styles.Theme

	// glamour renderers are width specific
	renderer      *glamour.TermRenderer
	rendererWidth int
}

// NewMessageList creates a MessageList.
func NewMessageList(theme *styles.Theme) *MessageList {
	return &MessageList{Width: 80, Markdown: true, theme: theme}
}

// SetWidth updates the wrap width.
func (l *MessageList) SetWidth(width int) {
	l.Width = width
}

// Render returns the transcript for msgs.
func (l *MessageList) Render(msgs []model.Message) string {
	if len(msgs) == 0 {
		return l.theme.Notice.Render(EmptyText)
	}

	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, l.renderMessage(m))
	}
	return strings.Join(parts, "\n\n")
}

func (l *MessageList) renderMessage(m model.Message) string {
	var label string
	switch {
	case m.IsError:
		label = l.theme.ErrorLabel.Render("Error")
	case m.IsUser():
		label = l.theme.UserLabel.Render(m.Role.DisplayName())
	default:
		label = l.theme.AssistantLabel.Render(m.Role.DisplayName())
	}
	if l.ShowSource && m.Source != "" {
		label += " " + l.theme.Source.Render("("+m.Source+")")
	}

	return label + "\n" + l.renderBody(m)
}

func (l *MessageList) renderBody(m model.Message) string {
	width := l.Width - 2
	if width < 20 {
		width = 20
	}

	switch {
	case m.IsError:
		return l.theme.ErrorText.Width(width).Render(m.Content)
	case m.IsAssistant() && l.Markdown:
		if out, ok := l.markdown(m.Content); ok {
			return out
		}
	}
	return l.theme.UserText.Width(width).Render(m.Content)
}

// markdown renders content with glamour, reporting false when rendering
// failed and the caller should fall back to plain text.
func (l *MessageList) markdown(content string) (string, bool) {
	if l.renderer == nil || l.rendererWidth != l.Width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(l.theme.GlamourStyle()),
			glamour.WithWordWrap(l.Width-4),
		)
		if err != nil {
			return "", false
		}
		l.renderer = r
		l.rendererWidth = l.Width
	}

	out, err := l.renderer.Render(content)
	if err != nil {
		return "", false
	}
	return strings.Trim(out, "\n"), true
}
