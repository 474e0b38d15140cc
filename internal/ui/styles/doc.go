// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the lipgloss theme for the chat TUI and CLI output.
//
// Colors are lipgloss.AdaptiveColor values, so the same theme works on dark
// and light terminals. Status is always shown with an ASCII shape alongside
// its color.
package styles
