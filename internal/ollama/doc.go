// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is the HTTP client for the primary reply tier.
//
// Only the two calls the dev backend needs are implemented: a reachability
// probe (GET /api/tags) and non-streaming chat (POST /api/chat).
//
// # Usage
//
//	client := ollama.NewClient(ollama.Config{BaseURL: "http://127.0.0.1:11434"})
//	if err := client.CheckRunning(ctx); err != nil {
//	    // fall back to the slow tier
//	}
//	resp, err := client.Chat(ctx, []ollama.Message{
//	    ollama.NewSystemMessage(prompt),
//	    ollama.NewUserMessage("What is gravity?"),
//	}, nil)
package ollama
