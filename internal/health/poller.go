// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package health polls the backend /health endpoint and tracks service availability.
package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/model"
)

// DefaultInterval is the time between periodic checks.
const DefaultInterval = 30 * time.Second

// Advisory texts shown above the chat input.
const (
	SlowAdvisory    = "The tutor is running on the CPU fallback. Replies may take a minute or more."
	OfflineAdvisory = "The tutor is currently unavailable. Sending is disabled until service returns."
)

// ErrAlreadyRunning is returned by Start when the poller is already active.
var ErrAlreadyRunning = errors.New("health poller already running")

// Checker performs one health request. *api.Client satisfies it.
type Checker interface {
	Health(ctx context.Context) (*model.ServiceHealth, error)
}

// Poller runs an immediate check and then one per interval until stopped.
// It is safe for concurrent use.
type Poller struct {
	checker  Checker
	interval time.Duration
	log      zerolog.Logger

	mu        sync.RWMutex
	current   *model.ServiceHealth
	listeners []func(model.ServiceHealth)
	updates   chan model.ServiceHealth

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. A non-positive interval uses DefaultInterval.
func NewPoller(checker Checker, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		checker:  checker,
		interval: interval,
		log:      log,
		updates:  make(chan model.ServiceHealth, 1),
	}
}

// Interval returns the polling interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start begins polling in a background goroutine. Cancelling ctx stops it
// the same way Stop does.
func (p *Poller) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.done != nil {
		select {
		case <-p.done:
			// Previous run ended on its own (ctx cancelled); allow a restart.
		default:
			return ErrAlreadyRunning
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx, p.done)
	return nil
}

// Stop cancels polling and waits for the goroutine to exit. It is idempotent.
func (p *Poller) Stop() {
	p.runMu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the polling goroutine is active.
func (p *Poller) Running() bool {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// =============================================================================
// CHECKS
// =============================================================================

// Check issues one health request and publishes the result. Any failure
// collapses to model.OfflineHealth; the cause is only logged.
func (p *Poller) Check(ctx context.Context) model.ServiceHealth {
	h, err := p.checker.Health(ctx)

	var next model.ServiceHealth
	switch {
	case err != nil:
		if errors.Is(ctx.Err(), context.Canceled) {
			// Stopped mid-request; keep the last known state.
			if cur := p.Current(); cur != nil {
				return *cur
			}
			return model.OfflineHealth()
		}
		p.log.Debug().Err(err).Msg("health check failed")
		next = model.OfflineHealth()
	case h == nil || h.Status == "":
		p.log.Debug().Msg("health check returned no status")
		next = model.OfflineHealth()
	default:
		next = *h
	}

	p.publish(next)
	return next
}

// Refresh runs a manual check outside the ticker.
func (p *Poller) Refresh(ctx context.Context) model.ServiceHealth {
	return p.Check(ctx)
}

// Current returns the last resolved health, or nil before the first result.
func (p *Poller) Current() *model.ServiceHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	h := *p.current
	return &h
}

// OnUpdate registers fn to be called after every check. Callbacks run on the
// polling goroutine and must not block.
func (p *Poller) OnUpdate(fn func(model.ServiceHealth)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Updates delivers the latest health. Only the newest unread value is kept.
func (p *Poller) Updates() <-chan model.ServiceHealth {
	return p.updates
}

func (p *Poller) publish(h model.ServiceHealth) {
	p.mu.Lock()
	prev := p.current
	p.current = &h
	listeners := append([]func(model.ServiceHealth){}, p.listeners...)
	p.mu.Unlock()

	if prev == nil || prev.Status != h.Status {
		p.log.Info().
			Str("status", string(h.Status)).
			Str("service", h.Service).
			Bool("chat_enabled", h.ChatEnabled).
			Msg("service health changed")
	}

	// Drop the stale value, if any, so the channel always holds the latest.
	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- h:
	default:
	}

	for _, fn := range listeners {
		fn(h)
	}
}

// Advisory returns the banner text for h, or "" when nothing needs saying.
func Advisory(h *model.ServiceHealth) string {
	if h == nil {
		return ""
	}
	switch {
	case h.IsOnline():
		return ""
	case h.IsSlow():
		return SlowAdvisory
	default:
		return OfflineAdvisory
	}
}
