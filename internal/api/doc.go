// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the tutoring backend.
//
// The client covers GET /health, GET /conversations, GET /conversations/{id},
// POST /chat and POST /suggest-holistic-project. Authenticated calls take a
// bearer token that the caller fetches fresh for each request.
//
// # Key Types
//
//   - Client: REST client with builder-style configuration
//   - Error: non-2xx response carrying the backend's {detail} field
//
// # Usage
//
//	client := api.New("http://localhost:8000").WithTimeout(30 * time.Second)
//	reply, err := client.Chat(ctx, token, model.NewChatRequest(msg, ""))
//	if err != nil {
//	    fmt.Println(api.UserMessage(err)) // detail, "Failed to fetch", or the transport error
//	}
//
// # Errors
//
// *Error unwraps to a sentinel chosen by status code, so callers can test
// errors.Is(err, api.ErrNotFound) or api.IsNotFound(err).
package api
