// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// These are the transient, client-side entities exchanged with the tutoring
// backend. Nothing in this package is persisted by the client.
//
// # Key Types
//
//   - Message: one turn, tagged user or assistant, optionally flagged as an error
//   - ConversationRef: read-only sidebar entry {id, title, createdAt}
//   - ServiceHealth: tri-state availability signal from GET /health
//   - ChatRequest / ChatReply: the POST /chat wire bodies
//
// # Usage
//
//	req := model.NewChatRequest(model.NewUserMessage("What is gravity?"), "")
//	// req.ConversationID == nil, encoded as null
//
//	h := model.OfflineHealth()
//	fmt.Println(h.Summary()) // "Services Offline"
package model
