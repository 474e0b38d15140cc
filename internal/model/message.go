// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import "strings"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Tutor"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the roles the backend accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ErrorPrefix is prepended to the content of error bubbles.
const ErrorPrefix = "Error: "

// Message is one turn in a conversation.
// Messages are immutable once appended to a conversation view.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Source names the backend tier that produced an assistant reply.
	Source string `json:"source,omitempty"`

	// IsError marks a locally synthesized failure bubble.
	IsError bool `json:"isError,omitempty"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message tagged with the tier that produced it.
func NewAssistantMessage(content, source string) Message {
	return Message{Role: RoleAssistant, Content: content, Source: source}
}

// NewErrorMessage creates an assistant-role error bubble.
// The content is always "Error: <detail>".
func NewErrorMessage(detail string) Message {
	return Message{
		Role:    RoleAssistant,
		Content: ErrorPrefix + detail,
		IsError: true,
	}
}

// NewNoticeMessage creates a synthetic assistant message that is not an error,
// such as the "not found" placeholder shown after a failed history load.
func NewNoticeMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// IsUser returns true if this is a user message.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// IsBlank reports whether the content is empty after trimming whitespace.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == ""
}

// CloneMessages returns a copy of msgs that callers may keep without
// aliasing the owner's backing array.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
