// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat.
package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/ui/chat"
	"github.com/jeranaias/socratic-tui/internal/ui/styles"
)

// HandleTUI runs the Bubble Tea chat screen, optionally opened on
// args.ConversationID.
func HandleTUI(args Args) error {
	route, err := conversation.ParseRoute(args.ConversationID)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	app, err := Setup(args, true)
	if err != nil {
		return err
	}
	defer app.Close()

	watcher, err := app.Watcher()
	if err != nil {
		return err
	}
	var changes <-chan struct{}
	if watcher != nil {
		changes = watcher.Changes()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := app.Poller()
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop()

	cfg := app.Config
	m := chat.New(app.Controller(), app.Sidebar(), app.Identity, styles.NewTheme(cfg.UI.Theme), chat.Options{
		Route:           route,
		Markdown:        cfg.UI.Markdown,
		ShowSource:      cfg.UI.ShowSource,
		SidebarWidth:    cfg.UI.SidebarWidth,
		Health:          poller,
		IdentityChanges: changes,
		RequestTimeout:  cfg.RequestTimeout(),
		Logger:          app.Log,
	})
	defer m.Close()

	app.Log.Info().Str("route", route.Path()).Msg("starting tui")
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
