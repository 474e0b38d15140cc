// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import "time"

// UntitledConversation is shown for conversations without a title.
const UntitledConversation = "Untitled conversation"

// =============================================================================
// CONVERSATION REFERENCE
// =============================================================================

// ConversationRef is the sidebar's read-only copy of a backend conversation.
// Identity is ID; the backend enforces uniqueness.
type ConversationRef struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// DisplayTitle returns the title or a placeholder when it is empty.
func (c ConversationRef) DisplayTitle() string {
	if c.Title == "" {
		return UntitledConversation
	}
	return c.Title
}

// Created returns the creation time, or the zero time when the backend omitted it.
func (c ConversationRef) Created() time.Time {
	if c.CreatedAt == nil {
		return time.Time{}
	}
	return *c.CreatedAt
}

// =============================================================================
// WIRE BODIES
// =============================================================================

// ConversationHistory is the body of GET /conversations/{id}.
type ConversationHistory struct {
	Messages []Message `json:"messages"`
}

// ChatRequest is the body of POST /chat.
// Only the new user message is sent; the backend keeps the durable history.
// A nil ConversationID is encoded as JSON null.
type ChatRequest struct {
	Messages       []Message `json:"messages"`
	ConversationID *string   `json:"conversation_id"`
}

// NewChatRequest builds a request for msg, using conversationID when it is non-empty.
func NewChatRequest(msg Message, conversationID string) ChatRequest {
	req := ChatRequest{Messages: []Message{msg}}
	if conversationID != "" {
		id := conversationID
		req.ConversationID = &id
	}
	return req
}

// ChatReply is the success body of POST /chat.
type ChatReply struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversation_id"`
	Source         string `json:"source,omitempty"`
}

// ProjectSuggestion is the success body of POST /suggest-holistic-project.
type ProjectSuggestion struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Steps   []string `json:"steps,omitempty"`
	Source  string   `json:"source,omitempty"`
}

// ErrorBody is the {detail} convention for non-2xx responses.
type ErrorBody struct {
	Detail string `json:"detail"`
}
