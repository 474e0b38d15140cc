// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events an atomic rewrite produces.
const DefaultDebounce = 150 * time.Millisecond

// =============================================================================
// CREDENTIALS WATCHER
// =============================================================================

// Watcher emits a signal whenever a credentials file changes, so views can
// re-check the signed-in user and reload.
//
// The parent directory is watched rather than the file itself, which keeps
// working across rename-based atomic writes and delete/recreate cycles.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	changes  chan struct{}
	log      zerolog.Logger

	mu      sync.Mutex
	pending *time.Timer
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher for the credentials file at path.
func NewWatcher(path string, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     abs,
		watcher:  fsw,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Watch starts watching. The parent directory must exist.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.processEvents()
	return nil
}

// Changes delivers one value per debounced burst of changes.
// Signals are coalesced: a slow reader sees at most one pending value.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()

	w.mu.Lock()
	started := w.started
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()

	if started {
		<-w.done
	}
	return err
}

func (w *Watcher) processEvents() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Str("path", w.path).Msg("credentials watcher error")
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.emit)
}

func (w *Watcher) emit() {
	if w.ctx.Err() != nil {
		return
	}
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
