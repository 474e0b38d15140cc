// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Development backend command.
//
// Command: serve [--addr HOST:PORT]
// Aliases: server
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/socratic-tui/internal/logging"
	"github.com/jeranaias/socratic-tui/internal/metrics"
	"github.com/jeranaias/socratic-tui/internal/server"
	"github.com/jeranaias/socratic-tui/internal/storage"
	"github.com/jeranaias/socratic-tui/internal/tutor"
)

// HandleServe runs the reference backend until interrupted.
func HandleServe(args Args) error {
	app, err := Setup(args, false)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config.Server
	if args.Addr != "" {
		cfg.Addr = args.Addr
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return NewCommandError("serve", "open database", err)
	}
	defer store.Close()

	var m *metrics.Metrics
	if cfg.Metrics {
		m = metrics.New()
	}

	responder := tutor.FromConfig(cfg, logging.Component("tutor"))
	srv := server.New(cfg, store, responder, m, logging.Component("server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Log.Info().
		Str("addr", cfg.Addr).
		Str("database", cfg.DatabasePath).
		Bool("metrics", cfg.Metrics).
		Bool("primary", cfg.OllamaURL != "").
		Bool("fallback", cfg.FallbackURL != "").
		Msg("starting backend")

	if err := srv.ListenAndServe(ctx); err != nil {
		return NewCommandError("serve", "listen", err)
	}
	return nil
}
