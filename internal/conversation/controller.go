// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/api"
	"github.com/jeranaias/socratic-tui/internal/identity"
	"github.com/jeranaias/socratic-tui/internal/model"
)

// Notices placed in the view when a history load fails.
const (
	NotFoundNotice   = "This conversation could not be found."
	LoadFailedNotice = "Failed to load this conversation."
	NetworkNotice    = "Failed to load this conversation. Check your connection."
)

// DefaultChatTimeout bounds a single POST /chat.
const DefaultChatTimeout = 60 * time.Second

// ProjectSource tags assistant messages produced by a project suggestion.
const ProjectSource = "project"

var (
	// ErrChatTimeout is reported when the chat timeout elapses before a reply.
	ErrChatTimeout = errors.New("the tutor did not reply in time")

	// ErrBusy is returned when another request is already in flight.
	ErrBusy = errors.New("a request is already in flight")
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's request state. At most one request is in flight.
type State int

const (
	StateIdle State = iota
	StateLoadingHistory
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingHistory:
		return "loading_history"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool { return s != StateIdle }

// Backend is the subset of the REST contract the controller uses.
// *api.Client satisfies it.
type Backend interface {
	Conversation(ctx context.Context, token, id string) (*model.ConversationHistory, error)
	Chat(ctx context.Context, token string, req model.ChatRequest) (*model.ChatReply, error)
	SuggestProject(ctx context.Context, token string) (*model.ProjectSuggestion, error)
}

// Options tunes a Controller.
type Options struct {
	// ChatTimeout bounds each POST /chat. Zero disables the bound.
	ChatTimeout time.Duration

	// GateSubmit refuses submissions unless health reports chat_enabled.
	GateSubmit bool

	Logger zerolog.Logger
}

// DefaultOptions returns the options used by the TUI and REPL.
func DefaultOptions() Options {
	return Options{
		ChatTimeout: DefaultChatTimeout,
		GateSubmit:  true,
		Logger:      zerolog.Nop(),
	}
}

// Controller owns one chat view: its message list, conversation id, input
// buffer and request state. It is safe for concurrent use.
//
// Network work is split into begin/fetch/finish steps so an event loop can
// run the fetch off its own goroutine. Each view change bumps a generation
// counter, and results from an older generation are dropped.
type Controller struct {
	backend  Backend
	identity identity.Provider
	opts     Options
	log      zerolog.Logger

	mu         sync.Mutex
	user       *identity.User
	navigated  bool
	convID     string
	messages   []model.Message
	state      State
	input      string
	health     *model.ServiceHealth
	generation uint64
	suggesting bool
}

// New creates a controller on the new-conversation view with no user.
func New(backend Backend, provider identity.Provider, opts Options) *Controller {
	return &Controller{
		backend:  backend,
		identity: provider,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "conversation").Logger(),
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns a copy of the message list.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneMessages(c.messages)
}

// State returns the request state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConversationID returns the id of the view, or "" for a new conversation.
func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.convID
}

// Route returns the route of the current view.
func (c *Controller) Route() Route {
	return ChatRoute(c.ConversationID())
}

// User returns the signed-in user of the view, or nil.
func (c *Controller) User() *identity.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Input returns the input buffer.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the input buffer.
func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = s
}

// Health returns the last health reported through SetHealth, or nil.
func (c *Controller) Health() *model.ServiceHealth {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.health == nil {
		return nil
	}
	h := *c.health
	return &h
}

// SetHealth records the latest service health. It never affects a request
// already in flight.
func (c *Controller) SetHealth(h model.ServiceHealth) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.health = &h
}

// CanSubmit reports whether a non-empty input would be accepted now, and
// if not, why.
func (c *Controller) CanSubmit() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *Controller) canSubmitLocked() (bool, string) {
	switch {
	case c.user == nil:
		return false, "sign in to chat"
	case c.state == StateLoadingHistory:
		return false, "loading conversation"
	case c.state == StateSubmitting:
		return false, "waiting for reply"
	case c.suggesting:
		return false, "waiting for suggestion"
	case c.opts.GateSubmit && (c.health == nil || !c.health.ChatEnabled):
		if c.health == nil {
			return false, "checking service status"
		}
		return false, "chat is unavailable"
	}
	return true, ""
}

// =============================================================================
// NAVIGATION
// =============================================================================

// Navigate points the view at route for user. When either differs from the
// current view, the message list is cleared and any in-flight result is
// orphaned. It reports whether a history load is now needed.
func (c *Controller) Navigate(user *identity.User, route Route) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.navigated && identity.Same(c.user, user) && c.convID == route.ID {
		return false
	}
	return c.resetLocked(user, route)
}

// StartNew always opens a fresh new-conversation view for the current user,
// even when the view has no id yet. Messages are cleared and any in-flight
// result is orphaned.
func (c *Controller) StartNew() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(c.user, NewChat())
}

func (c *Controller) resetLocked(user *identity.User, route Route) bool {
	c.navigated = true
	c.generation++
	if user == nil {
		c.user = nil
	} else {
		u := *user
		c.user = &u
	}
	c.convID = route.ID
	c.messages = nil
	c.state = StateIdle
	c.suggesting = false

	c.log.Debug().Str("route", route.Path()).Bool("signed_in", user != nil).Msg("navigate")
	return c.user != nil && c.convID != ""
}

// =============================================================================
// HISTORY LOAD
// =============================================================================

// PendingLoad is a history load started by BeginLoad.
type PendingLoad struct {
	generation uint64
	id         string
}

// ID returns the conversation being loaded.
func (p *PendingLoad) ID() string { return p.id }

// LoadResult is the outcome of FetchHistory.
type LoadResult struct {
	Messages []model.Message
	Err      error
	NotFound bool
}

// BeginLoad moves to StateLoadingHistory. It returns false when there is no
// user or conversation id, or a request is already in flight.
func (c *Controller) BeginLoad() (*PendingLoad, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.user == nil || c.convID == "" || c.state != StateIdle || c.suggesting {
		return nil, false
	}
	c.state = StateLoadingHistory
	return &PendingLoad{generation: c.generation, id: c.convID}, true
}

// FetchHistory obtains a fresh token and fetches the history. Every failure
// is folded into a single notice message.
func (c *Controller) FetchHistory(ctx context.Context, p *PendingLoad) LoadResult {
	token, err := c.identity.Token(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("conversation_id", p.id).Msg("token unavailable for history load")
		return LoadResult{Messages: []model.Message{model.NewNoticeMessage(NetworkNotice)}, Err: err}
	}

	hist, err := c.backend.Conversation(ctx, token, p.id)
	if err != nil {
		var apiErr *api.Error
		switch {
		case api.IsNotFound(err):
			return LoadResult{Messages: []model.Message{model.NewNoticeMessage(NotFoundNotice)}, Err: err, NotFound: true}
		case errors.As(err, &apiErr):
			c.log.Warn().Err(err).Str("conversation_id", p.id).Msg("history load rejected")
			return LoadResult{Messages: []model.Message{model.NewNoticeMessage(LoadFailedNotice)}, Err: err}
		default:
			c.log.Warn().Err(err).Str("conversation_id", p.id).Msg("history load failed")
			return LoadResult{Messages: []model.Message{model.NewNoticeMessage(NetworkNotice)}, Err: err}
		}
	}

	msgs := hist.Messages
	if msgs == nil {
		msgs = []model.Message{}
	}
	return LoadResult{Messages: msgs}
}

// FinishLoad replaces the message list with the result and returns to
// StateIdle. A result for a view that has since changed is dropped and
// FinishLoad returns false.
//
// On not-found the id is forgotten, so the next send starts a new
// conversation and adopts the id the backend assigns.
func (c *Controller) FinishLoad(p *PendingLoad, r LoadResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p == nil || p.generation != c.generation {
		return false
	}
	c.messages = model.CloneMessages(r.Messages)
	if c.messages == nil {
		c.messages = []model.Message{}
	}
	if r.NotFound {
		c.convID = ""
	}
	c.state = StateIdle
	return true
}

// Load runs BeginLoad, FetchHistory and FinishLoad in sequence.
// It reports whether a load ran and was applied.
func (c *Controller) Load(ctx context.Context) bool {
	p, ok := c.BeginLoad()
	if !ok {
		return false
	}
	return c.FinishLoad(p, c.FetchHistory(ctx, p))
}

// =============================================================================
// MESSAGE EXCHANGE
// =============================================================================

// PendingSubmit is a submission accepted by Submit.
type PendingSubmit struct {
	generation     uint64
	message        model.Message
	conversationID string
}

// Message returns the user message being sent.
func (p *PendingSubmit) Message() model.Message { return p.message }

// ConversationID returns the id the request carries, or "" for a new conversation.
func (p *PendingSubmit) ConversationID() string { return p.conversationID }

// ExchangeResult is the outcome of Exchange. Exactly one of Reply and Err is set.
type ExchangeResult struct {
	Reply *model.ChatReply
	Err   error
}

// FinishResult describes what Finish did to the view.
type FinishResult struct {
	// Applied is false when the view changed while the request was in flight.
	Applied bool

	// Message is the assistant message appended.
	Message model.Message

	// Adopted is set when a new conversation received its id; Route is then
	// the per-conversation route to navigate to.
	Adopted bool
	Route   Route
}

// Submit accepts text for sending. Unless every precondition holds it is a
// no-op that changes nothing. On acceptance the user message is appended,
// the input buffer cleared and the state set to StateSubmitting.
func (c *Controller) Submit(text string) (*PendingSubmit, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return nil, false
	}
	if ok, _ := c.canSubmitLocked(); !ok {
		return nil, false
	}

	msg := model.NewUserMessage(text)
	c.messages = append(c.messages, msg)
	c.input = ""
	c.state = StateSubmitting

	return &PendingSubmit{
		generation:     c.generation,
		message:        msg,
		conversationID: c.convID,
	}, true
}

// Exchange obtains a fresh token and POSTs the new message to /chat.
func (c *Controller) Exchange(ctx context.Context, p *PendingSubmit) ExchangeResult {
	if c.opts.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ChatTimeout)
		defer cancel()
	}

	token, err := c.identity.Token(ctx)
	if err != nil {
		return ExchangeResult{Err: err}
	}

	start := time.Now()
	reply, err := c.backend.Chat(ctx, token, model.NewChatRequest(p.message, p.conversationID))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			err = fmt.Errorf("%w (%s)", ErrChatTimeout, c.opts.ChatTimeout)
		}
		c.log.Warn().Err(err).Str("conversation_id", p.conversationID).Msg("chat request failed")
		return ExchangeResult{Err: err}
	}

	c.log.Debug().
		Str("conversation_id", reply.ConversationID).
		Str("source", reply.Source).
		Dur("duration", time.Since(start)).
		Msg("chat reply")
	return ExchangeResult{Reply: reply}
}

// Finish appends the reply, or an error bubble, and returns to StateIdle.
// A new conversation adopts the id the backend returned.
func (c *Controller) Finish(p *PendingSubmit, r ExchangeResult) FinishResult {
	var msg model.Message
	if r.Err != nil || r.Reply == nil {
		msg = model.NewErrorMessage(errorDetail(r.Err))
	} else {
		msg = model.NewAssistantMessage(r.Reply.Reply, r.Reply.Source)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p == nil || p.generation != c.generation {
		return FinishResult{Message: msg}
	}

	c.messages = append(c.messages, msg)
	c.state = StateIdle

	res := FinishResult{Applied: true, Message: msg}
	if r.Err == nil && r.Reply != nil && p.conversationID == "" && c.convID == "" && r.Reply.ConversationID != "" {
		c.convID = r.Reply.ConversationID
		res.Adopted = true
		res.Route = ChatRoute(c.convID)
		c.log.Info().Str("conversation_id", c.convID).Msg("new conversation created")
	}
	return res
}

// SubmitAndWait runs Submit, Exchange and Finish in sequence. It returns
// false without side effects when Submit refuses the input.
func (c *Controller) SubmitAndWait(ctx context.Context, text string) (FinishResult, bool) {
	p, ok := c.Submit(text)
	if !ok {
		return FinishResult{}, false
	}
	return c.Finish(p, c.Exchange(ctx, p)), true
}

// errorDetail converts an exchange failure into bubble text.
func errorDetail(err error) string {
	if err == nil {
		return api.FallbackDetail
	}
	return api.UserMessage(err)
}

// =============================================================================
// PROJECT SUGGESTION
// =============================================================================

// SuggestProject asks the backend for a project idea and appends it as an
// assistant message. It runs only from Idle, and while it is in flight
// submissions and loads are refused. It returns ErrBusy otherwise.
func (c *Controller) SuggestProject(ctx context.Context) (model.Message, error) {
	c.mu.Lock()
	switch {
	case c.user == nil:
		c.mu.Unlock()
		return model.Message{}, identity.ErrNotAuthenticated
	case c.state != StateIdle || c.suggesting:
		c.mu.Unlock()
		return model.Message{}, ErrBusy
	}
	c.suggesting = true
	gen := c.generation
	c.mu.Unlock()

	var msg model.Message
	token, err := c.identity.Token(ctx)
	if err == nil {
		var s *model.ProjectSuggestion
		s, err = c.backend.SuggestProject(ctx, token)
		if err != nil {
			msg = model.NewErrorMessage(api.UserMessage(err))
		} else {
			msg = model.NewAssistantMessage(FormatSuggestion(s), ProjectSource)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return msg, err
	}
	c.suggesting = false
	if msg.Content != "" {
		c.messages = append(c.messages, msg)
	}
	return msg, err
}

// Suggesting reports whether a project suggestion is in flight.
func (c *Controller) Suggesting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suggesting
}

// FormatSuggestion renders a project suggestion as markdown.
func FormatSuggestion(s *model.ProjectSuggestion) string {
	if s == nil {
		return ""
	}
	var sb strings.Builder
	title := s.Title
	if title == "" {
		title = "Project idea"
	}
	fmt.Fprintf(&sb, "**%s**\n\n", title)
	if s.Summary != "" {
		sb.WriteString(s.Summary)
		sb.WriteString("\n")
	}
	if len(s.Steps) > 0 {
		sb.WriteString("\n")
		for i, step := range s.Steps {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
