// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/socratic-tui/internal/api"
	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/health"
	"github.com/jeranaias/socratic-tui/internal/identity"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ui/styles"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeBackend struct {
	mu         sync.Mutex
	histories  map[string][]model.Message
	list       []model.ConversationRef
	replyID    string
	chatErr    error
	chats      []model.ChatRequest
	listCalls  int
	suggests   int
	suggestion *model.ProjectSuggestion
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		histories: map[string][]model.Message{
			"c1": {
				model.NewUserMessage("What is photosynthesis?"),
				model.NewAssistantMessage("What do plants need to grow?", model.ServicePrimary),
			},
			"c2": {
				model.NewUserMessage("How do fractions work?"),
				model.NewAssistantMessage("What is half of a pizza?", model.ServicePrimary),
			},
		},
		list: []model.ConversationRef{
			{ID: "c1", Title: "What is photosynthesis?"},
			{ID: "c2", Title: "How do fractions work?"},
		},
		replyID: "new-id",
		suggestion: &model.ProjectSuggestion{
			Title:   "Build a sundial",
			Summary: "Track the sun over a day.",
			Steps:   []string{"Find a stick"},
		},
	}
}

func (b *fakeBackend) Conversation(ctx context.Context, token, id string) (*model.ConversationHistory, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs, ok := b.histories[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return &model.ConversationHistory{Messages: model.CloneMessages(msgs)}, nil
}

func (b *fakeBackend) Chat(ctx context.Context, token string, req model.ChatRequest) (*model.ChatReply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chats = append(b.chats, req)
	if b.chatErr != nil {
		return nil, b.chatErr
	}
	id := b.replyID
	if req.ConversationID != nil {
		id = *req.ConversationID
	}
	return &model.ChatReply{Reply: "What do you already know?", ConversationID: id, Source: model.ServicePrimary}, nil
}

func (b *fakeBackend) SuggestProject(ctx context.Context, token string) (*model.ProjectSuggestion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.suggests++
	return b.suggestion, nil
}

func (b *fakeBackend) SuggestCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suggests
}

func (b *fakeBackend) Conversations(ctx context.Context, token string) ([]model.ConversationRef, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	return append([]model.ConversationRef(nil), b.list...), nil
}

func (b *fakeBackend) Chats() []model.ChatRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.ChatRequest(nil), b.chats...)
}

func (b *fakeBackend) ListCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

type fakeHealth struct {
	current *model.ServiceHealth
	refresh model.ServiceHealth
	updates chan model.ServiceHealth
}

func (f *fakeHealth) Current() *model.ServiceHealth                { return f.current }
func (f *fakeHealth) Refresh(context.Context) model.ServiceHealth { return f.refresh }
func (f *fakeHealth) Updates() <-chan model.ServiceHealth          { return f.updates }

var ada = &identity.User{ID: "ada", Email: "ada@example.com"}

func online() model.ServiceHealth {
	return model.ServiceHealth{Status: model.StatusOnline, Service: model.ServicePrimary, ChatEnabled: true}
}

func newTestModel(b *fakeBackend, provider identity.Provider, opts Options) Model {
	opts.Logger = zerolog.Nop()
	ctrl := conversation.New(b, provider, conversation.DefaultOptions())
	sidebar := conversation.NewSidebar(b, provider, opts.Logger)
	return New(ctrl, sidebar, provider, styles.NewTheme(styles.ModeDark), opts)
}

// =============================================================================
// HELPERS
// =============================================================================

// run executes cmd and every command it batches, returning the messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// relevant filters out spinner ticks and cursor blinks.
func relevant(msg tea.Msg) bool {
	switch msg.(type) {
	case userResolvedMsg, identityChangedMsg, historyLoadedMsg, exchangeDoneMsg, sidebarLoadedMsg, suggestionMsg, healthMsg, tea.QuitMsg:
		return true
	}
	return false
}

// settle feeds msg through Update and runs the resulting commands until
// nothing relevant is produced.
func settle(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for i := 0; len(queue) > 0; i++ {
		require.Less(t, i, 50, "update loop did not settle")
		next, cmd := m.Update(queue[0])
		m = next.(Model)
		queue = queue[1:]
		for _, out := range run(cmd) {
			if relevant(out) {
				queue = append(queue, out)
			}
		}
	}
	return m
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func keyPress(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// =============================================================================
// NAVIGATION TESTS
// =============================================================================

func TestResolveLoadsRouteHistory(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{Route: conversation.ChatRoute("c1")})

	m = settle(t, m, userResolvedMsg{user: ada})

	assert.Equal(t, "c1", m.ctrl.ConversationID())
	assert.Len(t, m.ctrl.Messages(), 2)
	assert.Equal(t, conversation.StateIdle, m.ctrl.State())
	assert.Equal(t, "c1", m.sidebar.Active())
	assert.Equal(t, 2, m.sidebar.Len())

	view := m.View()
	assert.Contains(t, view, "photosynthesis")
	assert.Contains(t, view, "Conversations")
}

func TestSignedOutShowsNotice(t *testing.T) {
	b := newFakeBackend()
	provider := identity.NewStatic(nil, "")
	m := newTestModel(b, provider, Options{Route: conversation.ChatRoute("c1")})

	m = settle(t, m, userResolvedMsg{err: identity.ErrNotAuthenticated})

	assert.Nil(t, m.ctrl.User())
	assert.Empty(t, m.ctrl.Messages())
	assert.Equal(t, 0, m.sidebar.Len())

	view := m.View()
	assert.Contains(t, view, "Sign in to start")
	assert.Contains(t, view, "sign in to chat")
}

func TestSidebarOpensSelectedConversation(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})
	require.Equal(t, 2, m.sidebar.Len())

	m = settle(t, m, keyPress(tea.KeyTab))
	assert.True(t, m.sidebarFocus)
	assert.False(t, m.input.Focused())

	m = settle(t, m, keyPress(tea.KeyDown))
	assert.Equal(t, 1, m.sidebar.Cursor())

	m = settle(t, m, keyPress(tea.KeyEnter))
	assert.False(t, m.sidebarFocus)
	assert.Equal(t, "c2", m.ctrl.ConversationID())
	assert.Equal(t, "c2", m.sidebar.Active())
	require.Len(t, m.ctrl.Messages(), 2)
	assert.Equal(t, "How do fractions work?", m.ctrl.Messages()[0].Content)
}

func TestNewChatKeyClearsView(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{Route: conversation.ChatRoute("c1")})
	m = settle(t, m, userResolvedMsg{user: ada})
	require.Len(t, m.ctrl.Messages(), 2)

	m = settle(t, m, keyPress(tea.KeyCtrlN))

	assert.Equal(t, "", m.ctrl.ConversationID())
	assert.Empty(t, m.ctrl.Messages())
	assert.Equal(t, "", m.sidebar.Active())
}

func TestUnknownConversationForgetsID(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{Route: conversation.ChatRoute("gone")})

	m = settle(t, m, userResolvedMsg{user: ada})

	assert.Equal(t, "", m.ctrl.ConversationID())
	assert.Equal(t, "", m.sidebar.Active())
	require.Len(t, m.ctrl.Messages(), 1)
	assert.Equal(t, conversation.NotFoundNotice, m.ctrl.Messages()[0].Content)
}

func TestIdentityChangeReloadsForNewUser(t *testing.T) {
	b := newFakeBackend()
	provider := identity.NewStatic(ada, "tok")
	m := newTestModel(b, provider, Options{Route: conversation.ChatRoute("c1")})
	m = settle(t, m, userResolvedMsg{user: ada})
	require.Len(t, m.ctrl.Messages(), 2)

	grace := &identity.User{ID: "grace"}
	provider.Set(grace, "tok-grace")
	m = settle(t, m, identityChangedMsg{})

	require.NotNil(t, m.ctrl.User())
	assert.Equal(t, "grace", m.ctrl.User().ID)
	assert.Equal(t, "c1", m.ctrl.ConversationID())
	assert.Equal(t, 2, b.ListCalls())
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestSubmitAdoptsNewConversation(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})
	m = settle(t, m, healthMsg{health: online()})

	m = typeText(m, "What is gravity?")
	assert.Equal(t, "What is gravity?", m.ctrl.Input())

	m = settle(t, m, keyPress(tea.KeyEnter))

	chats := b.Chats()
	require.Len(t, chats, 1)
	assert.Nil(t, chats[0].ConversationID)
	require.Len(t, chats[0].Messages, 1)
	assert.Equal(t, "What is gravity?", chats[0].Messages[0].Content)

	assert.Equal(t, "new-id", m.ctrl.ConversationID())
	assert.Equal(t, "new-id", m.sidebar.Active())
	assert.Equal(t, "", m.input.Value())
	require.Len(t, m.ctrl.Messages(), 2)
	assert.Equal(t, "What do you already know?", m.ctrl.Messages()[1].Content)

	// one refresh on sign-in, one after adoption
	assert.Equal(t, 2, b.ListCalls())
}

func TestSubmitRefusedWithoutHealth(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})

	m = typeText(m, "hello")
	next, cmd := m.Update(keyPress(tea.KeyEnter))
	m = next.(Model)

	assert.Nil(t, cmd)
	assert.Empty(t, b.Chats())
	assert.Empty(t, m.ctrl.Messages())
	assert.Equal(t, "hello", m.input.Value())
	assert.Contains(t, m.View(), "checking service status")
}

func TestSubmitErrorShowsBubble(t *testing.T) {
	b := newFakeBackend()
	b.chatErr = errors.New("connection refused")
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})
	m = settle(t, m, healthMsg{health: online()})

	m = typeText(m, "hello")
	m = settle(t, m, keyPress(tea.KeyEnter))

	msgs := m.ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsError)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "Error: "))
	assert.Equal(t, "", m.ctrl.ConversationID())
	assert.Equal(t, conversation.StateIdle, m.ctrl.State())
}

func TestStaleReplyDroppedAfterNavigation(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})
	m = settle(t, m, healthMsg{health: online()})

	m = typeText(m, "hello")
	next, cmd := m.Update(keyPress(tea.KeyEnter))
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, conversation.StateSubmitting, m.ctrl.State())

	m = settle(t, m, keyPress(tea.KeyCtrlN))
	assert.Empty(t, m.ctrl.Messages())

	for _, msg := range run(cmd) {
		if relevant(msg) {
			m = settle(t, m, msg)
		}
	}
	assert.Empty(t, m.ctrl.Messages())
	assert.Equal(t, "", m.ctrl.ConversationID())
}

func TestSuggestAppendsProject(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})

	m = settle(t, m, keyPress(tea.KeyCtrlP))

	assert.False(t, m.ctrl.Suggesting())
	msgs := m.ctrl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.ProjectSource, msgs[0].Source)
	assert.Contains(t, msgs[0].Content, "Build a sundial")
}

func TestSuggestIgnoredWhileSubmitting(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})
	m = settle(t, m, healthMsg{health: online()})

	m = typeText(m, "What is gravity?")
	next, cmd := m.Update(keyPress(tea.KeyEnter))
	m = next.(Model)
	require.NotNil(t, cmd)

	next, suggestCmd := m.Update(keyPress(tea.KeyCtrlP))
	m = next.(Model)
	assert.Nil(t, suggestCmd)

	for _, msg := range run(cmd) {
		if relevant(msg) {
			m = settle(t, m, msg)
		}
	}
	assert.Equal(t, 0, b.SuggestCalls())
	msgs := m.ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "What is gravity?", msgs[0].Content)
	assert.Equal(t, "What do you already know?", msgs[1].Content)
}

func TestNewChatClearsUnsavedView(t *testing.T) {
	b := newFakeBackend()
	b.chatErr = &api.Error{StatusCode: 503, Detail: "chat service unavailable"}
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})
	m = settle(t, m, healthMsg{health: online()})

	m = typeText(m, "hello")
	m = settle(t, m, keyPress(tea.KeyEnter))
	require.Len(t, m.ctrl.Messages(), 2)

	m = settle(t, m, keyPress(tea.KeyCtrlN))
	assert.Empty(t, m.ctrl.Messages())
	assert.Equal(t, conversation.StateIdle, m.ctrl.State())
}

func TestSuggestSignedOut(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(nil, ""), Options{})
	m = settle(t, m, userResolvedMsg{err: identity.ErrNotAuthenticated})

	m = settle(t, m, keyPress(tea.KeyCtrlP))
	assert.Equal(t, SignInFirstNotice, m.notice)
}

// =============================================================================
// HEALTH AND LAYOUT TESTS
// =============================================================================

func TestHealthFromPollerRewaits(t *testing.T) {
	src := &fakeHealth{updates: make(chan model.ServiceHealth, 1)}
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{Health: src})

	next, cmd := m.Update(healthMsg{health: model.OfflineHealth(), fromPoller: true})
	m = next.(Model)
	require.NotNil(t, cmd)

	src.updates <- online()
	msgs := run(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, healthMsg{health: online(), fromPoller: true}, msgs[0])
}

func TestOfflineHealthShowsAdvisory(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, userResolvedMsg{user: ada})
	m = settle(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})

	m = settle(t, m, healthMsg{health: model.OfflineHealth()})

	view := m.View()
	assert.Contains(t, view, "The tutor is currently unavailable")
	assert.Contains(t, view, "chat is unavailable")
	assert.Equal(t, health.OfflineAdvisory, health.Advisory(m.ctrl.Health()))
}

func TestRefreshKeyUsesSource(t *testing.T) {
	src := &fakeHealth{refresh: online(), updates: make(chan model.ServiceHealth)}
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{Health: src})

	m = settle(t, m, keyPress(tea.KeyCtrlR))

	require.NotNil(t, m.ctrl.Health())
	assert.True(t, m.ctrl.Health().ChatEnabled)
}

func TestInitialHealthFromSource(t *testing.T) {
	h := online()
	src := &fakeHealth{current: &h, updates: make(chan model.ServiceHealth)}
	m := newTestModel(newFakeBackend(), identity.NewStatic(ada, "tok"), Options{Health: src})

	require.NotNil(t, m.ctrl.Health())
	assert.Equal(t, model.StatusOnline, m.ctrl.Health().Status)
}

func TestNarrowTerminalHidesSidebar(t *testing.T) {
	b := newFakeBackend()
	m := newTestModel(b, identity.NewStatic(ada, "tok"), Options{})
	m = settle(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})

	assert.False(t, m.showSidebar)
	assert.Equal(t, 60, m.viewport.Width)

	m = settle(t, m, keyPress(tea.KeyTab))
	assert.False(t, m.sidebarFocus)
}

func TestQuitCancelsRequests(t *testing.T) {
	m := newTestModel(newFakeBackend(), identity.NewStatic(ada, "tok"), Options{})

	_, cmd := m.Update(keyPress(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
}
