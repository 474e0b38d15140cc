// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("rate limit exceeded")

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if msg.Content != "Error: rate limit exceeded" {
		t.Errorf("Content = %q", msg.Content)
	}
	if !msg.IsError {
		t.Error("IsError should be true")
	}
}

func TestMessage_JSONKeys(t *testing.T) {
	data, err := json.Marshal(NewErrorMessage("boom"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"isError":true`) {
		t.Errorf("expected isError key, got %s", s)
	}
	if strings.Contains(s, `"source"`) {
		t.Errorf("empty source should be omitted, got %s", s)
	}
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Tutor"},
		{Role("other"), "other"},
	}
	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestCloneMessages_DoesNotAlias(t *testing.T) {
	orig := []Message{NewUserMessage("hi")}
	clone := CloneMessages(orig)
	clone[0].Content = "changed"
	if orig[0].Content != "hi" {
		t.Error("CloneMessages aliased the source slice")
	}
	if CloneMessages(nil) != nil {
		t.Error("CloneMessages(nil) should be nil")
	}
}

// =============================================================================
// CHAT REQUEST TESTS
// =============================================================================

func TestNewChatRequest_NullConversationID(t *testing.T) {
	data, err := json.Marshal(NewChatRequest(NewUserMessage("What is gravity?"), ""))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"messages":[{"role":"user","content":"What is gravity?"}],"conversation_id":null}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestNewChatRequest_WithConversationID(t *testing.T) {
	req := NewChatRequest(NewUserMessage("hello"), "new-42")
	if req.ConversationID == nil || *req.ConversationID != "new-42" {
		t.Errorf("ConversationID = %v, want new-42", req.ConversationID)
	}
	if len(req.Messages) != 1 {
		t.Errorf("expected exactly one message, got %d", len(req.Messages))
	}
}

// =============================================================================
// CONVERSATION REF TESTS
// =============================================================================

func TestConversationRef_Decode(t *testing.T) {
	var refs []ConversationRef
	body := `[{"id":"a","title":"Gravity","createdAt":"2025-01-02T03:04:05Z"},{"id":"b","title":""}]`
	if err := json.Unmarshal([]byte(body), &refs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("len = %d, want 2", len(refs))
	}
	if refs[0].Created().Year() != 2025 {
		t.Errorf("createdAt not decoded: %v", refs[0].CreatedAt)
	}
	if !refs[1].Created().IsZero() {
		t.Error("missing createdAt should yield zero time")
	}
	if refs[1].DisplayTitle() != UntitledConversation {
		t.Errorf("DisplayTitle() = %q", refs[1].DisplayTitle())
	}
}

// =============================================================================
// SERVICE HEALTH TESTS
// =============================================================================

func TestServiceHealth_DecodeServicesKey(t *testing.T) {
	body := `{"status":"slow","service":"hf_cpu_slow","chat_enabled":true,"services":{"colab":"offline","huggingface":"online"}}`
	var h ServiceHealth
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !h.IsSlow() || !h.ChatEnabled || h.Service != ServiceFallback {
		t.Errorf("unexpected health: %+v", h)
	}
	if h.Details == nil || h.Details.HuggingFace != TierOnline {
		t.Errorf("services not decoded: %+v", h.Details)
	}
}

func TestServiceHealth_DecodeDetailsKey(t *testing.T) {
	body := `{"status":"online","service":"colab_gpu","chat_enabled":true,"details":{"colab":"online","huggingface":"not_configured"}}`
	var h ServiceHealth
	if err := json.Unmarshal([]byte(body), &h); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if h.Details == nil || h.Details.Colab != TierOnline || h.Details.HuggingFace != TierNotConfigured {
		t.Errorf("details not decoded: %+v", h.Details)
	}
}

func TestOfflineHealth(t *testing.T) {
	h := OfflineHealth()
	if h.Status != StatusOffline || h.Service != ServiceNone || h.ChatEnabled {
		t.Errorf("OfflineHealth() = %+v", h)
	}
	if !h.IsOffline() {
		t.Error("IsOffline() should be true")
	}
}

func TestServiceHealth_UnknownStatusIsOffline(t *testing.T) {
	h := ServiceHealth{Status: "maintenance"}
	if !h.IsOffline() {
		t.Error("unknown status should be treated as offline")
	}
	if h.Summary() != "Services Offline" {
		t.Errorf("Summary() = %q", h.Summary())
	}
}

func TestTierLabel(t *testing.T) {
	tests := map[string]string{
		TierOnline:        "Online",
		TierNotConfigured: "Not Configured",
		TierOffline:       "Offline",
		"":                "Offline",
	}
	for in, want := range tests {
		if got := TierLabel(in); got != want {
			t.Errorf("TierLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
