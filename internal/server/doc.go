// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server is the reference backend behind `socratic serve`.
//
// # Endpoints
//
//   - GET    /health                   - service status, no auth
//   - GET    /conversations            - the caller's conversations, newest first
//   - GET    /conversations/{id}       - message history
//   - DELETE /conversations/{id}       - remove a conversation
//   - POST   /chat                     - send a message, get the tutor's reply
//   - POST   /suggest-holistic-project - propose a project from past questions
//   - GET    /metrics                  - Prometheus metrics, when enabled
//
// Every error body is {"detail": "..."}.
//
// # Middleware
//
//   - Bearer token authentication with constant-time comparison
//   - Per-user token-bucket rate limiting (429 "rate limit exceeded")
//   - CORS for the web frontend's origins
//   - Security headers
//   - zerolog request logging and Prometheus request metrics
//   - Panic recovery
//
// # Usage
//
//	srv := server.New(cfg.Server, store, tutor.FromConfig(cfg.Server, log), metrics.New(), log)
//	if err := srv.ListenAndServe(ctx); err != nil {
//		log.Fatal().Err(err).Msg("server failed")
//	}
package server
