// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for the socratic dev backend.
//
// Conversations and messages live in a pure-Go SQLite database
// (modernc.org/sqlite). The schema is versioned with rubenv/sql-migrate; the
// migrations are compiled in and applied by Open.
//
// # Usage
//
//	store, err := storage.Open("~/.socratic/server.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	ref, _ := store.CreateConversation(ctx, "ada", "What is gravity?")
//	_ = store.AppendMessages(ctx, ref.ID, userMsg, reply)
//	history, _ := store.Messages(ctx, "ada", ref.ID)
package storage
