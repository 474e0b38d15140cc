// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for --json.
package cli

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/jeranaias/socratic-tui/internal/model"
)

// JSONResponse is the envelope every --json command prints.
type JSONResponse struct {
	Success bool `json:"success"`

	// Data is the command-specific payload.
	Data any `json:"data"`

	// Error is the error message when Success is false, null otherwise.
	Error *string `json:"error"`

	Timestamp string `json:"timestamp"`
	Command   string `json:"command,omitempty"`

	out io.Writer
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// To redirects Print to w.
func (r *JSONResponse) To(w io.Writer) *JSONResponse {
	r.out = w
	return r
}

// Print writes the response as indented JSON, to stdout unless To was called.
func (r *JSONResponse) Print() error {
	out := r.out
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// StatusData is the payload of `socratic status --json`.
type StatusData struct {
	BaseURL   string              `json:"base_url"`
	LocalOnly bool                `json:"local_only"`
	Health    model.ServiceHealth `json:"health"`
	Advisory  string              `json:"advisory,omitempty"`
	User      string              `json:"user,omitempty"`
}

// ConversationsData is the payload of `socratic conversations --json`.
type ConversationsData struct {
	Count         int                     `json:"count"`
	Conversations []model.ConversationRef `json:"conversations"`
}

// SuggestData is the payload of `socratic suggest --json`.
type SuggestData struct {
	Suggestion *model.ProjectSuggestion `json:"suggestion"`
}

// ExportData is the payload of `socratic export --json`.
type ExportData struct {
	ConversationID string `json:"conversation_id"`
	Format         string `json:"format"`
	Path           string `json:"path"`
	Messages       int    `json:"messages"`
}
