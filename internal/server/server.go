// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/config"
	"github.com/jeranaias/socratic-tui/internal/metrics"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/storage"
	"github.com/jeranaias/socratic-tui/internal/tutor"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize bounds POST bodies (1MB).
	MaxRequestBodySize = 1 << 20

	// MaxMessageLength bounds a single message's content in bytes.
	MaxMessageLength = 32 * 1024

	// MaxMessageCount bounds messages per /chat request.
	MaxMessageCount = 50

	// suggestionHistory is how many past questions feed a project suggestion.
	suggestionHistory = 50

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second
)

// Error details returned to clients.
const (
	DetailUnavailable = "chat service unavailable"
	DetailNotFound    = "conversation not found"
	DetailBadRequest  = "invalid request body"
	DetailInternal    = "internal server error"
)

// Tutor produces replies. *tutor.Responder implements it.
type Tutor interface {
	Tiers(ctx context.Context) tutor.TierStates
	Reply(ctx context.Context, history []model.Message) (tutor.Reply, error)
	SuggestProject(ctx context.Context, questions []string) (*model.ProjectSuggestion, error)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the reference backend for the chat client.
type Server struct {
	cfg     config.ServerConfig
	store   *storage.Store
	tutor   Tutor
	metrics *metrics.Metrics
	log     zerolog.Logger

	mux     *http.ServeMux
	limiter *RateLimiter
	handler http.Handler
	server  *http.Server
}

// New wires routes and middleware. m may be nil to disable /metrics.
func New(cfg config.ServerConfig, store *storage.Store, t Tutor, m *metrics.Metrics, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		tutor:   t,
		metrics: m,
		log:     log,
		mux:     http.NewServeMux(),
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.setupRoutes()

	cors := DefaultCORSConfig()
	if len(cfg.CORSOrigins) > 0 {
		cors.AllowedOrigins = cfg.CORSOrigins
	}
	s.handler = Chain(
		RecoveryMiddleware(log),
		LoggingMiddleware(log, m),
		SecurityHeadersMiddleware(),
		CORSMiddleware(cors),
	)(s.mux)
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	protected := Chain(
		AuthMiddleware(s.cfg.Tokens, s.log),
		RateLimitMiddleware(s.limiter),
	)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /conversations", protected(http.HandlerFunc(s.handleListConversations)))
	s.mux.Handle("GET /conversations/{id}", protected(http.HandlerFunc(s.handleConversation)))
	s.mux.Handle("DELETE /conversations/{id}", protected(http.HandlerFunc(s.handleDeleteConversation)))
	s.mux.Handle("POST /chat", protected(http.HandlerFunc(s.handleChat)))
	s.mux.Handle("POST /suggest-holistic-project", protected(http.HandlerFunc(s.handleSuggest)))

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// handleHealth handles GET /health. It never requires auth.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.tutor.Tiers(r.Context()).Health()
	if s.metrics != nil {
		s.metrics.SetHealth(health.Status)
	}
	writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// CONVERSATION HANDLERS
// ============================================================================

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	refs, err := s.store.ListConversations(r.Context(), user)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	msgs, err := s.store.Messages(r.Context(), user, r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, DetailNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ConversationHistory{Messages: msgs})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	err := s.store.DeleteConversation(r.Context(), user, r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, DetailNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /chat. A null conversation_id starts a new
// conversation; the reply carries its id.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)

	var req model.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	incoming, detail := validateMessages(req.Messages)
	if detail != "" {
		writeError(w, http.StatusBadRequest, detail)
		return
	}

	var (
		convID  string
		history []model.Message
	)
	if req.ConversationID != nil && *req.ConversationID != "" {
		convID = *req.ConversationID
		stored, err := s.store.Messages(ctx, user, convID)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, DetailNotFound)
			return
		}
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		history = stored
	}
	history = append(history, incoming...)

	reply, err := s.tutor.Reply(ctx, history)
	if err != nil {
		if ctx.Err() != nil {
			s.log.Debug().Err(err).Msg("client went away before reply")
			return
		}
		s.log.Warn().Err(err).Str("user", user).Msg("no tier could reply")
		writeError(w, http.StatusServiceUnavailable, DetailUnavailable)
		return
	}

	if convID == "" {
		ref, err := s.store.CreateConversation(ctx, user, firstUserContent(incoming))
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		convID = ref.ID
	}

	answer := model.NewAssistantMessage(reply.Text, reply.Source)
	if err := s.store.AppendMessages(ctx, convID, append(incoming, answer)...); err != nil {
		s.internalError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordReply(reply.Source)
	}

	writeJSON(w, http.StatusOK, model.ChatReply{
		Reply:          reply.Text,
		ConversationID: convID,
		Source:         reply.Source,
	})
}

// validateMessages checks roles and sizes and that the last turn is the
// user's. It returns the messages with client-only flags cleared.
func validateMessages(msgs []model.Message) ([]model.Message, string) {
	if len(msgs) == 0 {
		return nil, "messages must not be empty"
	}
	if len(msgs) > MaxMessageCount {
		return nil, fmt.Sprintf("too many messages: maximum is %d", MaxMessageCount)
	}

	out := make([]model.Message, 0, len(msgs))
	for i, m := range msgs {
		if !m.Role.Valid() {
			return nil, fmt.Sprintf("invalid role %q at message %d", m.Role, i)
		}
		if len(m.Content) > MaxMessageLength {
			return nil, fmt.Sprintf("message %d exceeds %d bytes", i, MaxMessageLength)
		}
		m.IsError = false
		if m.IsUser() {
			m.Source = ""
		}
		out = append(out, m)
	}

	last := out[len(out)-1]
	if !last.IsUser() || last.IsBlank() {
		return nil, "last message must be a non-empty user message"
	}
	return out, ""
}

func firstUserContent(msgs []model.Message) string {
	for _, m := range msgs {
		if m.IsUser() {
			return m.Content
		}
	}
	return ""
}

// ============================================================================
// PROJECT SUGGESTION HANDLER
// ============================================================================

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)

	questions, err := s.store.UserMessages(ctx, user, suggestionHistory)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	suggestion, err := s.tutor.SuggestProject(ctx, questions)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Str("user", user).Msg("project suggestion failed")
		writeError(w, http.StatusServiceUnavailable, DetailUnavailable)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordReply(suggestion.Source)
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

// decode reads a bounded JSON body, answering 400/413 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.log.Debug().Err(err).Msg("bad request body")
		writeError(w, http.StatusBadRequest, DetailBadRequest)
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, DetailInternal)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {detail} body the client expects.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorBody{Detail: strings.TrimSpace(detail)})
}
