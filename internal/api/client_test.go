// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/socratic-tui/internal/localmode"
	"github.com/jeranaias/socratic-tui/internal/model"
)

// =============================================================================
// HEALTH TESTS
// =============================================================================

func TestHealth_Unauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s, want /health", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("health check must not send credentials")
		}
		w.Write([]byte(`{"status":"online","service":"colab_gpu","chat_enabled":true,"services":{"colab":"online","huggingface":"not_configured"}}`))
	}))
	defer server.Close()

	h, err := New(server.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !h.IsOnline() || !h.ChatEnabled || h.Service != model.ServicePrimary {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestHealth_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL).Health(context.Background())
	if !errors.Is(err, ErrServerError) {
		t.Errorf("err = %v, want ErrServerError", err)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_SendsBearerAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("missing request id header")
		}
		if r.URL.Path != "/conversations/abc123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`))
	}))
	defer server.Close()

	hist, err := New(server.URL).Conversation(context.Background(), "tok-1", "abc123")
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(hist.Messages) != 2 || hist.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", hist.Messages)
	}
}

func TestConversation_MissingMessagesIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	hist, err := New(server.URL).Conversation(context.Background(), "t", "x")
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if hist.Messages == nil || len(hist.Messages) != 0 {
		t.Errorf("messages = %#v, want empty non-nil", hist.Messages)
	}
}

func TestConversation_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Conversation not found"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Conversation(context.Background(), "t", "xyz")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}
}

func TestConversations_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"a","title":"Gravity"},{"id":"b","title":"Photosynthesis","createdAt":"2025-03-01T10:00:00Z"}]`))
	}))
	defer server.Close()

	refs, err := New(server.URL).Conversations(context.Background(), "t")
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(refs) != 2 || refs[1].Title != "Photosynthesis" {
		t.Errorf("refs = %+v", refs)
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_RequestBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if string(raw["conversation_id"]) != "null" {
			t.Errorf("conversation_id = %s, want null", raw["conversation_id"])
		}
		w.Write([]byte(`{"reply":"Why do you think objects fall?","conversation_id":"new-42","source":"colab_gpu"}`))
	}))
	defer server.Close()

	reply, err := New(server.URL).Chat(context.Background(), "t",
		model.NewChatRequest(model.NewUserMessage("What is gravity?"), ""))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.ConversationID != "new-42" || reply.Source != "colab_gpu" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestChat_ErrorDetail(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"rate limit with detail", http.StatusTooManyRequests, `{"detail":"rate limit exceeded"}`, ErrRateLimited, "rate limit exceeded"},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"invalid token"}`, ErrUnauthorized, "invalid token"},
		{"server error without detail", http.StatusInternalServerError, `oops`, ErrServerError, FallbackDetail},
		{"bad request empty body", http.StatusBadRequest, ``, ErrBadRequest, FallbackDetail},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := New(server.URL).Chat(context.Background(), "t",
				model.NewChatRequest(model.NewUserMessage("hello"), "c1"))
			if !errors.Is(err, tc.sentinel) {
				t.Errorf("err = %v, want %v", err, tc.sentinel)
			}
			if got := UserMessage(err); got != tc.message {
				t.Errorf("UserMessage = %q, want %q", got, tc.message)
			}
		})
	}
}

func TestChat_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(url).Chat(context.Background(), "t",
		model.NewChatRequest(model.NewUserMessage("hello"), ""))
	if err == nil {
		t.Fatal("expected network error")
	}
	if StatusCode(err) != 0 {
		t.Error("network error should carry no status")
	}
	if !strings.Contains(UserMessage(err), "request failed") {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
}

func TestChat_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(server.URL).Chat(ctx, "t", model.NewChatRequest(model.NewUserMessage("x"), ""))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestClient_NoBaseURL(t *testing.T) {
	_, err := New("").Health(context.Background())
	if !errors.Is(err, ErrNoBaseURL) {
		t.Errorf("err = %v, want ErrNoBaseURL", err)
	}
}

func TestClient_LocalModeBlocksRemote(t *testing.T) {
	original := localmode.Enabled()
	defer localmode.Set(original)
	localmode.Set(true)

	_, err := New("https://tutor.example.com").Health(context.Background())
	if !errors.Is(err, localmode.ErrNonLocalhost) {
		t.Errorf("err = %v, want ErrNonLocalhost", err)
	}
}

func TestClient_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:8000/")
	if c.BaseURL() != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
	c.WithBaseURL("http://127.0.0.1:9000/")
	if c.BaseURL() != "http://127.0.0.1:9000" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
}

func TestSuggestProject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/suggest-holistic-project" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"title":"Build a pendulum","summary":"Measure g","steps":["Cut string","Time swings"]}`))
	}))
	defer server.Close()

	s, err := New(server.URL).SuggestProject(context.Background(), "t")
	if err != nil {
		t.Fatalf("SuggestProject: %v", err)
	}
	if s.Title != "Build a pendulum" || len(s.Steps) != 2 {
		t.Errorf("suggestion = %+v", s)
	}
}
