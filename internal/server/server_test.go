// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/socratic-tui/internal/config"
	"github.com/jeranaias/socratic-tui/internal/metrics"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/storage"
	"github.com/jeranaias/socratic-tui/internal/tutor"
)

// =============================================================================
// FIXTURES
// =============================================================================

type fakeTutor struct {
	mu        sync.Mutex
	states    tutor.TierStates
	reply     tutor.Reply
	err       error
	histories [][]model.Message
	questions []string
}

func (f *fakeTutor) Tiers(context.Context) tutor.TierStates {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states
}

func (f *fakeTutor) Reply(_ context.Context, history []model.Message) (tutor.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, model.CloneMessages(history))
	return f.reply, f.err
}

func (f *fakeTutor) SuggestProject(_ context.Context, questions []string) (*model.ProjectSuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = questions
	if f.err != nil {
		return nil, f.err
	}
	return &model.ProjectSuggestion{Title: "Pendulum lab", Summary: "Measure g.", Steps: []string{"Build"}, Source: f.reply.Source}, nil
}

func (f *fakeTutor) lastHistory() []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.histories) == 0 {
		return nil
	}
	return f.histories[len(f.histories)-1]
}

func onlineTutor() *fakeTutor {
	return &fakeTutor{
		states: tutor.TierStates{Primary: model.TierOnline, Fallback: model.TierNotConfigured},
		reply:  tutor.Reply{Text: "What do you already know about it?", Source: model.ServicePrimary},
	}
}

type fixture struct {
	srv   *Server
	ts    *httptest.Server
	tutor *fakeTutor
	store *storage.Store
}

func newFixture(t *testing.T, ft *fakeTutor, mutate ...func(*config.ServerConfig)) *fixture {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default().Server
	cfg.Tokens = map[string]string{"ada-token": "ada", "bob-token": "bob"}
	cfg.RateLimit = 0
	for _, m := range mutate {
		m(&cfg)
	}

	srv := New(cfg, store, ft, metrics.New(), zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{srv: srv, ts: ts, tutor: ft, store: store}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, f.ts.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func chatBody(text string, id *string) model.ChatRequest {
	return model.ChatRequest{Messages: []model.Message{model.NewUserMessage(text)}, ConversationID: id}
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		states  tutor.TierStates
		status  model.HealthStatus
		service string
		enabled bool
	}{
		{"online", tutor.TierStates{Primary: model.TierOnline, Fallback: model.TierOnline}, model.StatusOnline, model.ServicePrimary, true},
		{"slow", tutor.TierStates{Primary: model.TierOffline, Fallback: model.TierOnline}, model.StatusSlow, model.ServiceFallback, true},
		{"offline", tutor.TierStates{Primary: model.TierOffline, Fallback: model.TierNotConfigured}, model.StatusOffline, model.ServiceNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeTutor{states: tt.states})
			resp := f.do(t, http.MethodGet, "/health", "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var raw map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
			assert.Equal(t, string(tt.status), raw["status"])
			assert.Equal(t, tt.service, raw["service"])
			assert.Equal(t, tt.enabled, raw["chat_enabled"])
			services, ok := raw["services"].(map[string]any)
			require.True(t, ok, "services key present")
			assert.Equal(t, tt.states.Primary, services["colab"])
			assert.Equal(t, tt.states.Fallback, services["huggingface"])
		})
	}
}

func TestHealthUpdatesMetrics(t *testing.T) {
	f := newFixture(t, &fakeTutor{states: tutor.TierStates{Primary: model.TierOffline, Fallback: model.TierOnline}})
	f.do(t, http.MethodGet, "/health", "", nil)

	resp := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "socratic_health_status 1")
	assert.Contains(t, string(body), `route="GET /health"`)
}

func TestMetricsDisabled(t *testing.T) {
	f := newFixture(t, onlineTutor())
	srv := New(f.srv.cfg, f.store, f.tutor, nil, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// AUTH
// =============================================================================

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, onlineTutor())
	for _, token := range []string{"", "wrong"} {
		resp := f.do(t, http.MethodGet, "/conversations", token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "not authenticated", decodeBody[model.ErrorBody](t, resp).Detail)
	}
}

func TestValidateBearerToken(t *testing.T) {
	assert.True(t, ValidateBearerToken("abc", "abc"))
	assert.False(t, ValidateBearerToken("abc", "abd"))
	assert.False(t, ValidateBearerToken("", ""))
	assert.False(t, ValidateBearerToken("abc", ""))
}

// =============================================================================
// CHAT
// =============================================================================

func TestChatNewConversationAdoptsID(t *testing.T) {
	f := newFixture(t, onlineTutor())

	resp := f.do(t, http.MethodPost, "/chat", "ada-token", chatBody("What is gravity?", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeBody[model.ChatReply](t, resp)
	require.NotEmpty(t, first.ConversationID)
	assert.Equal(t, "What do you already know about it?", first.Reply)
	assert.Equal(t, model.ServicePrimary, first.Source)

	id := first.ConversationID
	resp = f.do(t, http.MethodPost, "/chat", "ada-token", chatBody("Things fall down.", &id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeBody[model.ChatReply](t, resp)
	assert.Equal(t, id, second.ConversationID)

	// The tutor saw the stored turns plus the new one.
	history := f.tutor.lastHistory()
	require.Len(t, history, 3)
	assert.Equal(t, "What is gravity?", history[0].Content)
	assert.True(t, history[1].IsAssistant())
	assert.Equal(t, "Things fall down.", history[2].Content)

	resp = f.do(t, http.MethodGet, "/conversations/"+id, "ada-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hist := decodeBody[model.ConversationHistory](t, resp)
	require.Len(t, hist.Messages, 4)
	assert.Equal(t, model.ServicePrimary, hist.Messages[1].Source)

	resp = f.do(t, http.MethodGet, "/conversations", "ada-token", nil)
	refs := decodeBody[[]model.ConversationRef](t, resp)
	require.Len(t, refs, 1)
	assert.Equal(t, "What is gravity?", refs[0].Title)
	assert.NotNil(t, refs[0].CreatedAt)
}

func TestChatUnknownConversation(t *testing.T) {
	f := newFixture(t, onlineTutor())
	id := "xyz"
	resp := f.do(t, http.MethodPost, "/chat", "ada-token", chatBody("hello", &id))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, DetailNotFound, decodeBody[model.ErrorBody](t, resp).Detail)
	assert.Nil(t, f.tutor.lastHistory())
}

func TestChatUnavailable(t *testing.T) {
	ft := onlineTutor()
	ft.err = tutor.ErrUnavailable
	f := newFixture(t, ft)

	resp := f.do(t, http.MethodPost, "/chat", "ada-token", chatBody("hello", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, DetailUnavailable, decodeBody[model.ErrorBody](t, resp).Detail)

	refs, err := f.store.ListConversations(context.Background(), "ada")
	require.NoError(t, err)
	assert.Empty(t, refs, "no conversation is created without a reply")
}

func TestChatValidation(t *testing.T) {
	f := newFixture(t, onlineTutor())
	tests := []struct {
		name string
		body any
	}{
		{"bad json", `{"messages":`},
		{"empty", model.ChatRequest{}},
		{"assistant last", model.ChatRequest{Messages: []model.Message{model.NewAssistantMessage("hi", "")}}},
		{"blank user", model.ChatRequest{Messages: []model.Message{model.NewUserMessage("   ")}}},
		{"bad role", model.ChatRequest{Messages: []model.Message{{Role: "system", Content: "x"}}}},
		{"too long", chatBody(strings.Repeat("a", MaxMessageLength+1), nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/chat", "ada-token", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, decodeBody[model.ErrorBody](t, resp).Detail)
		})
	}
	assert.Nil(t, f.tutor.lastHistory())
}

func TestConversationsScopedToUser(t *testing.T) {
	f := newFixture(t, onlineTutor())
	resp := f.do(t, http.MethodPost, "/chat", "ada-token", chatBody("private", nil))
	id := decodeBody[model.ChatReply](t, resp).ConversationID

	resp = f.do(t, http.MethodGet, "/conversations/"+id, "bob-token", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/chat", "bob-token", chatBody("hijack", &id))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/conversations", "bob-token", nil)
	assert.Empty(t, decodeBody[[]model.ConversationRef](t, resp))
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t, onlineTutor())
	resp := f.do(t, http.MethodPost, "/chat", "ada-token", chatBody("temp", nil))
	id := decodeBody[model.ChatReply](t, resp).ConversationID

	resp = f.do(t, http.MethodDelete, "/conversations/"+id, "ada-token", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/conversations/"+id, "ada-token", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSuggestProject(t *testing.T) {
	f := newFixture(t, onlineTutor())
	f.do(t, http.MethodPost, "/chat", "ada-token", chatBody("Why do pendulums swing?", nil))

	resp := f.do(t, http.MethodPost, "/suggest-holistic-project", "ada-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	s := decodeBody[model.ProjectSuggestion](t, resp)
	assert.Equal(t, "Pendulum lab", s.Title)
	assert.Equal(t, []string{"Why do pendulums swing?"}, f.tutor.questions)
}

func TestSuggestProjectUnavailable(t *testing.T) {
	ft := onlineTutor()
	ft.err = tutor.ErrUnavailable
	f := newFixture(t, ft)

	resp := f.do(t, http.MethodPost, "/suggest-holistic-project", "ada-token", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRateLimitPerUser(t *testing.T) {
	f := newFixture(t, onlineTutor(), func(c *config.ServerConfig) {
		c.RateLimit = 0.001
		c.RateBurst = 2
	})

	for i := 0; i < 2; i++ {
		resp := f.do(t, http.MethodGet, "/conversations", "ada-token", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := f.do(t, http.MethodGet, "/conversations", "ada-token", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate limit exceeded", decodeBody[model.ErrorBody](t, resp).Detail)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	// Another user has their own bucket.
	resp = f.do(t, http.MethodGet, "/conversations", "bob-token", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.Equal(t, 1, rl.Len())

	now = now.Add(11 * time.Minute)
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 1, rl.Len(), "idle key evicted")
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("a"))
	}
}

func TestSecurityAndRequestIDHeaders(t *testing.T) {
	f := newFixture(t, onlineTutor())
	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-1", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	resp = f.do(t, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"), "generated when absent")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, onlineTutor(), func(c *config.ServerConfig) {
		c.CORSOrigins = []string{"https://app.example.com"}
	})

	req, _ := http.NewRequest(http.MethodOptions, f.ts.URL+"/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "https://evil.example.org")
	resp2, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSSubdomainWildcard(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"*.example.com"}}
	got, ok := cfg.allowedOrigin("https://app.example.com")
	assert.True(t, ok)
	assert.Equal(t, "https://app.example.com", got)

	_, ok = cfg.allowedOrigin("https://example.org")
	assert.False(t, ok)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), DetailInternal)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"untrusted ignores xff", "203.0.113.7:5000", "1.2.3.4", "", "203.0.113.7"},
		{"trusted proxy xff", "127.0.0.1:5000", "1.2.3.4, 10.0.0.1", "", "1.2.3.4"},
		{"trusted proxy xri", "10.1.2.3:5000", "", "5.6.7.8", "5.6.7.8"},
		{"invalid xff", "127.0.0.1:5000", "not-an-ip", "", "127.0.0.1"},
		{"no port", "203.0.113.9", "", "", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, onlineTutor())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
