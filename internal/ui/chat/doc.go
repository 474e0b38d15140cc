// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea model for the interactive chat screen.

The model is a thin shell over conversation.Controller. It never changes
conversation state itself; every network step runs as a tea.Cmd that calls
the controller's begin, fetch and finish methods, so results for a view the
user has already left are dropped by the controller.

# Files

model.go - Model, Options and the commands that run off the event loop.

update.go - message and key handling.

view.go - layout and rendering through the components package.

keys.go - key bindings and status bar hints.

messages.go - the tea.Msg types the commands produce.

# Usage

	m := chat.New(ctrl, sidebar, provider, theme, chat.Options{
		Route:    conversation.ChatRoute(id),
		Markdown: cfg.UI.Markdown,
		Health:   poller,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
