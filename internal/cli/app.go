// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared startup for every command that talks to a backend.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/api"
	"github.com/jeranaias/socratic-tui/internal/config"
	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/health"
	"github.com/jeranaias/socratic-tui/internal/identity"
	"github.com/jeranaias/socratic-tui/internal/localmode"
	"github.com/jeranaias/socratic-tui/internal/logging"
)

// watchDebounce coalesces bursts of credential file writes.
const watchDebounce = 250 * time.Millisecond

// App holds the configured collaborators a command needs.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Client   *api.Client
	Identity identity.Provider

	closers []io.Closer
}

// loadConfig reads the config file named by args, or the default one.
// Local mode is switched on before validation so a remote base_url fails.
func loadConfig(args Args) (*config.Config, error) {
	if args.Local {
		localmode.Set(true)
	}

	var cfg *config.Config
	var err error
	if args.ConfigFile != "" {
		cfg, err = config.LoadFromPath(args.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	if cfg.Backend.LocalOnly && !localmode.Enabled() {
		localmode.Set(true)
		if err := cfg.Validate(); err != nil {
			return nil, &ConfigError{Err: err}
		}
	}
	if args.Verbose {
		cfg.Logging.Level = "debug"
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// Setup loads configuration, logging, the API client and the identity provider.
//
// Interactive commands own the terminal, so their logs go to a file.
// Headless commands log to stderr.
func Setup(args Args, interactive bool) (*App, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty}
	if interactive {
		logCfg.File = cfg.Logging.File
		if logCfg.File == "" {
			dir, err := config.ConfigDir()
			if err != nil {
				return nil, &ConfigError{Err: err}
			}
			logCfg.File = logging.DefaultFile(dir)
		}
	} else {
		logCfg.Pretty = cfg.Logging.Pretty || IsStderrTTY()
		if args.Quiet && !args.Verbose {
			logCfg.Level = "warn"
		}
	}
	if err := logging.Init(logCfg); err != nil {
		return nil, err
	}

	provider, err := identity.FromConfig(cfg.Identity)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	log := logging.L()
	client := api.New(cfg.Backend.BaseURL).
		WithTimeout(cfg.RequestTimeout()).
		WithUserAgent("socratic/" + Version).
		WithLogger(logging.Component("api"))

	log.Debug().
		Str("base_url", cfg.Backend.BaseURL).
		Str("identity", cfg.Identity.Source).
		Bool("local_only", localmode.Enabled()).
		Msg("socratic starting")

	return &App{
		Config:   cfg,
		Log:      log,
		Client:   client,
		Identity: provider,
	}, nil
}

// Controller builds a conversation controller from the app config.
func (a *App) Controller() *conversation.Controller {
	return conversation.New(a.Client, a.Identity, conversation.Options{
		ChatTimeout: a.Config.ChatTimeout(),
		GateSubmit:  a.Config.Health.GateSubmit,
		Logger:      a.Log,
	})
}

// Sidebar builds a conversation list bound to the app's client.
func (a *App) Sidebar() *conversation.Sidebar {
	return conversation.NewSidebar(a.Client, a.Identity, a.Log)
}

// Poller builds a health poller. It is not started.
func (a *App) Poller() *health.Poller {
	return health.NewPoller(a.Client, a.Config.PollInterval(), logging.Component("health"))
}

// Watcher starts a credential file watcher when the identity source is a
// watched file. It returns nil otherwise.
func (a *App) Watcher() (*identity.Watcher, error) {
	id := a.Config.Identity
	if id.Source != config.IdentityFile || !id.Watch {
		return nil, nil
	}
	w, err := identity.NewWatcher(id.TokenFile, watchDebounce, logging.Component("identity"))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", id.TokenFile, err)
	}
	if err := w.Watch(); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", id.TokenFile, err)
	}
	a.closers = append(a.closers, w)
	return w, nil
}

// User resolves the signed-in user, returning ErrNotAuthenticated for nobody.
func (a *App) User(ctx context.Context) (*identity.User, error) {
	user, err := a.Identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, identity.ErrNotAuthenticated
	}
	return user, nil
}

// Token returns a fresh bearer credential for a signed-in user.
func (a *App) Token(ctx context.Context) (string, error) {
	if _, err := a.User(ctx); err != nil {
		return "", err
	}
	return a.Identity.Token(ctx)
}

// RequestContext bounds a one-shot command request by the request timeout.
func (a *App) RequestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if t := a.Config.RequestTimeout(); t > 0 {
		return context.WithTimeout(parent, t)
	}
	return context.WithCancel(parent)
}

// Close releases watchers and the log file.
func (a *App) Close() error {
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	if err := logging.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
