// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/identity"
	"github.com/jeranaias/socratic-tui/internal/model"
)

// =============================================================================
// IDENTITY MESSAGES
// =============================================================================

// userResolvedMsg carries the result of asking the provider who is signed in.
type userResolvedMsg struct {
	user *identity.User
	err  error
}

// identityChangedMsg is sent when the credentials source changed on disk.
type identityChangedMsg struct{}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// historyLoadedMsg completes a history load started with BeginLoad.
type historyLoadedMsg struct {
	pending *conversation.PendingLoad
	result  conversation.LoadResult
}

// exchangeDoneMsg completes a submission started with Submit.
type exchangeDoneMsg struct {
	pending *conversation.PendingSubmit
	result  conversation.ExchangeResult
}

// sidebarLoadedMsg is sent after a conversation list refresh.
type sidebarLoadedMsg struct {
	err error
}

// suggestionMsg is sent when a project suggestion request finished.
type suggestionMsg struct {
	message model.Message
	err     error
}

// =============================================================================
// HEALTH MESSAGES
// =============================================================================

// healthMsg carries a health result. fromPoller marks results read from the
// poller's update channel, which must be waited on again.
type healthMsg struct {
	health     model.ServiceHealth
	fromPoller bool
}
