// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/jeranaias/socratic-tui/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Submit   key.Binding
	NewChat  key.Binding
	Refresh  key.Binding
	Suggest  key.Binding
	Focus    key.Binding
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "check status"),
		),
		Suggest: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "suggest project"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "conversations"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ChatHints returns the status bar hints while the input has focus.
func (k KeyMap) ChatHints() []components.Hint {
	return hints(k.Submit, k.Focus, k.NewChat, k.Suggest, k.Refresh, k.Quit)
}

// SidebarHints returns the status bar hints while the sidebar has focus.
func (k KeyMap) SidebarHints() []components.Hint {
	return hints(k.Open, k.Up, k.Down, k.Focus, k.Quit)
}

func hints(bindings ...key.Binding) []components.Hint {
	out := make([]components.Hint, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, components.Hint{Key: h.Key, Desc: h.Desc})
	}
	return out
}
