// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components renders the pieces of the chat screen.

Components are plain structs with setters and a View method. They hold no
conversation state of their own; the chat model copies what they need from
the controller before each render.

# Components

Header (header.go) - title bar with the signed-in user, service status and
the local-only badge.

MessageList (message.go) - the transcript. Tutor replies go through glamour
when markdown rendering is on.

SidebarPanel (sidebar.go) - the conversation list with cursor and active entry.

StatusBar (statusbar.go) - request state, the reason sending is disabled and
shortcut hints.

# Usage

	theme := styles.NewTheme(styles.ModeAuto)
	header := components.NewHeader(theme)
	header.SetWidth(100)
	header.SetHealth(&h)
	view := header.View()
*/
package components
