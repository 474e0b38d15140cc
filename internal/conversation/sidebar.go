// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/identity"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/util"
)

// Lister fetches the user's conversations. *api.Client satisfies it.
type Lister interface {
	Conversations(ctx context.Context, token string) ([]model.ConversationRef, error)
}

// Sidebar caches the conversation list used for navigation.
// The list is read-only; only the backend creates or renames entries.
type Sidebar struct {
	lister   Lister
	identity identity.Provider
	log      zerolog.Logger

	mu     sync.RWMutex
	items  []model.ConversationRef
	active string
	cursor int

	// issued stamps each refresh as it starts; applied is the newest stamp
	// whose result is in items. Older results arriving late are dropped.
	issued  uint64
	applied uint64
}

// NewSidebar creates an empty sidebar.
func NewSidebar(lister Lister, provider identity.Provider, log zerolog.Logger) *Sidebar {
	return &Sidebar{
		lister:   lister,
		identity: provider,
		log:      log.With().Str("component", "sidebar").Logger(),
	}
}

// Refresh refetches the list for user. A nil user clears it. On failure the
// previous list is kept and the error returned. When refreshes overlap, the
// one started last wins.
func (s *Sidebar) Refresh(ctx context.Context, user *identity.User) error {
	s.mu.Lock()
	s.issued++
	stamp := s.issued
	if user == nil {
		s.applied = stamp
		s.items = nil
		s.cursor = 0
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	token, err := s.identity.Token(ctx)
	if err != nil {
		return err
	}
	items, err := s.lister.Conversations(ctx, token)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to refresh conversation list")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stamp < s.applied {
		s.log.Debug().Uint64("stamp", stamp).Msg("dropping stale conversation list")
		return nil
	}
	s.applied = stamp
	s.items = items
	s.cursor = s.indexLocked(s.active)
	return nil
}

// SetActive marks id as the open conversation and moves the cursor to it.
func (s *Sidebar) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = id
	s.cursor = s.indexLocked(id)
}

// Active returns the open conversation id.
func (s *Sidebar) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Items returns a copy of the cached list.
func (s *Sidebar) Items() []model.ConversationRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ConversationRef, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of cached entries.
func (s *Sidebar) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Cursor returns the highlighted index.
func (s *Sidebar) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Move shifts the cursor by delta, clamped to the list.
func (s *Sidebar) Move(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		s.cursor = 0
		return
	}
	s.cursor += delta
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.cursor >= len(s.items) {
		s.cursor = len(s.items) - 1
	}
}

// Selected returns the highlighted entry.
func (s *Sidebar) Selected() (model.ConversationRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return model.ConversationRef{}, false
	}
	return s.items[s.cursor], true
}

// Titles returns display titles truncated to width terminal cells.
func (s *Sidebar) Titles(width int) []string {
	items := s.Items()
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = util.TruncateWidth(it.DisplayTitle(), width)
	}
	return out
}

func (s *Sidebar) indexLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	if s.cursor >= len(s.items) {
		return 0
	}
	return s.cursor
}
