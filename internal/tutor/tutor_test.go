// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/socratic-tui/internal/localmode"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ollama"
)

type fakeTier struct {
	name     string
	probeErr error
	reply    string
	replyErr error

	mu     sync.Mutex
	calls  int
	system string
	msgs   []model.Message
}

func (f *fakeTier) Name() string { return f.name }

func (f *fakeTier) Probe(context.Context) error { return f.probeErr }

func (f *fakeTier) Complete(_ context.Context, msgs []model.Message, system string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.system = system
	f.msgs = msgs
	return f.reply, f.replyErr
}

func (f *fakeTier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTierStatesHealth(t *testing.T) {
	tests := []struct {
		name    string
		states  TierStates
		status  model.HealthStatus
		service string
		enabled bool
	}{
		{"primary", TierStates{model.TierOnline, model.TierOffline}, model.StatusOnline, model.ServicePrimary, true},
		{"primary wins", TierStates{model.TierOnline, model.TierOnline}, model.StatusOnline, model.ServicePrimary, true},
		{"fallback only", TierStates{model.TierOffline, model.TierOnline}, model.StatusSlow, model.ServiceFallback, true},
		{"unconfigured primary", TierStates{model.TierNotConfigured, model.TierOnline}, model.StatusSlow, model.ServiceFallback, true},
		{"none", TierStates{model.TierOffline, model.TierNotConfigured}, model.StatusOffline, model.ServiceNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.states.Health()
			assert.Equal(t, tt.status, h.Status)
			assert.Equal(t, tt.service, h.Service)
			assert.Equal(t, tt.enabled, h.ChatEnabled)
			require.NotNil(t, h.Details)
			assert.Equal(t, tt.states.Primary, h.Details.Colab)
			assert.Equal(t, tt.states.Fallback, h.Details.HuggingFace)
		})
	}
}

func TestResponderTiers(t *testing.T) {
	r := NewResponder(&fakeTier{name: model.ServicePrimary, probeErr: errors.New("down")}, nil, zerolog.Nop())
	states := r.Tiers(context.Background())
	assert.Equal(t, model.TierOffline, states.Primary)
	assert.Equal(t, model.TierNotConfigured, states.Fallback)

	r = NewResponder(nil, &fakeTier{name: model.ServiceFallback}, zerolog.Nop())
	states = r.Tiers(context.Background())
	assert.Equal(t, model.TierNotConfigured, states.Primary)
	assert.Equal(t, model.TierOnline, states.Fallback)
}

func TestReplyPrefersPrimary(t *testing.T) {
	primary := &fakeTier{name: model.ServicePrimary, reply: "What do you think?"}
	fallback := &fakeTier{name: model.ServiceFallback, reply: "slow"}
	r := NewResponder(primary, fallback, zerolog.Nop())

	reply, err := r.Reply(context.Background(), []model.Message{model.NewUserMessage("What is gravity?")})
	require.NoError(t, err)
	assert.Equal(t, "What do you think?", reply.Text)
	assert.Equal(t, model.ServicePrimary, reply.Source)
	assert.Equal(t, SystemPrompt, primary.system)
	assert.Zero(t, fallback.Calls())
}

func TestReplyFallsBack(t *testing.T) {
	primary := &fakeTier{name: model.ServicePrimary, replyErr: ollama.ErrNotRunning}
	fallback := &fakeTier{name: model.ServiceFallback, reply: "Let's think about it."}
	r := NewResponder(primary, fallback, zerolog.Nop())

	reply, err := r.Reply(context.Background(), []model.Message{model.NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, model.ServiceFallback, reply.Source)
	assert.Equal(t, 1, primary.Calls())
}

func TestReplyUnavailable(t *testing.T) {
	r := NewResponder(
		&fakeTier{name: model.ServicePrimary, replyErr: errors.New("a")},
		&fakeTier{name: model.ServiceFallback, replyErr: errors.New("b")},
		zerolog.Nop(),
	)
	_, err := r.Reply(context.Background(), nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "colab_gpu: a")
	assert.Contains(t, err.Error(), "hf_cpu_slow: b")

	_, err = NewResponder(nil, nil, zerolog.Nop()).Reply(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReplyCancelledStopsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fallback := &fakeTier{name: model.ServiceFallback, reply: "x"}
	r := NewResponder(&fakeTier{name: model.ServicePrimary, replyErr: context.Canceled}, fallback, zerolog.Nop())

	_, err := r.Reply(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fallback.Calls())
}

func TestSuggestProject(t *testing.T) {
	primary := &fakeTier{
		name:  model.ServicePrimary,
		reply: "Sure!\n" + `{"title":"Build a pendulum","summary":"Measure g.","steps":["Build it"," ","Time swings"]}`,
	}
	r := NewResponder(primary, nil, zerolog.Nop())

	s, err := r.SuggestProject(context.Background(), []string{"What is gravity?", "Why do pendulums swing?"})
	require.NoError(t, err)
	assert.Equal(t, "Build a pendulum", s.Title)
	assert.Equal(t, []string{"Build it", "Time swings"}, s.Steps)
	assert.Equal(t, model.ServicePrimary, s.Source)
	assert.Equal(t, projectPrompt, primary.system)
	require.Len(t, primary.msgs, 1)
	assert.Contains(t, primary.msgs[0].Content, "- Why do pendulums swing?")
}

func TestSuggestProjectNoHistory(t *testing.T) {
	primary := &fakeTier{name: model.ServicePrimary, reply: "Try building a sundial."}
	r := NewResponder(primary, nil, zerolog.Nop())

	s, err := r.SuggestProject(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Suggested project", s.Title)
	assert.Equal(t, "Try building a sundial.", s.Summary)
	assert.Equal(t, noHistoryTopics, primary.msgs[0].Content)
}

func TestConversationalFiltersErrors(t *testing.T) {
	msgs := conversational([]model.Message{
		model.NewUserMessage("q"),
		model.NewErrorMessage("boom"),
		model.NewUserMessage("  "),
		{Role: "system", Content: "x"},
		model.NewAssistantMessage("a", ""),
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "q", msgs[0].Content)
	assert.Equal(t, "a", msgs[1].Content)
}

// =============================================================================
// HTTP TIERS
// =============================================================================

func TestOllamaTier(t *testing.T) {
	var got ollama.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[]}`))
		case "/api/chat":
			json.NewDecoder(r.Body).Decode(&got)
			w.Write([]byte(`{"message":{"role":"assistant","content":"  What forces act here?  "},"done":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tier := NewOllamaTier(ollama.NewClient(ollama.Config{BaseURL: srv.URL}))
	require.NoError(t, tier.Probe(context.Background()))

	reply, err := tier.Complete(context.Background(), []model.Message{model.NewUserMessage("Why do apples fall?")}, SystemPrompt)
	require.NoError(t, err)
	assert.Equal(t, "What forces act here?", reply)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestOpenAITier(t *testing.T) {
	var auth string
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			w.Write([]byte(`{"object":"list","data":[{"id":"mistral","object":"model"}]}`))
		case "/v1/chat/completions":
			json.NewDecoder(r.Body).Decode(&body)
			w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"mistral","choices":[{"index":0,"message":{"role":"assistant","content":"What have you tried?"},"finish_reason":"stop"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tier := NewOpenAITier(srv.URL+"/v1/", "hf-key", "mistral")
	require.NoError(t, tier.Probe(context.Background()))
	assert.Equal(t, "Bearer hf-key", auth)

	reply, err := tier.Complete(context.Background(), []model.Message{
		model.NewUserMessage("q1"),
		model.NewAssistantMessage("a1", model.ServiceFallback),
		model.NewUserMessage("q2"),
	}, SystemPrompt)
	require.NoError(t, err)
	assert.Equal(t, "What have you tried?", reply)
	assert.Equal(t, "mistral", body.Model)
	require.Len(t, body.Messages, 4)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "assistant", body.Messages[2].Role)
}

func TestOpenAITierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"message":"loading","type":"server_error"}}`))
	}))
	defer srv.Close()

	tier := NewOpenAITier(srv.URL+"/v1", "", "m")
	assert.Error(t, tier.Probe(context.Background()))
	_, err := tier.Complete(context.Background(), []model.Message{model.NewUserMessage("q")}, SystemPrompt)
	assert.Error(t, err)
}

func TestOpenAITierLocalMode(t *testing.T) {
	localmode.Set(true)
	t.Cleanup(func() { localmode.Set(false) })

	tier := NewOpenAITier("https://example.com/v1", "k", "m")
	err := tier.Probe(context.Background())
	assert.ErrorIs(t, err, localmode.ErrNonLocalhost)

	_, err = tier.Complete(context.Background(), nil, SystemPrompt)
	assert.ErrorIs(t, err, localmode.ErrNonLocalhost)
}
