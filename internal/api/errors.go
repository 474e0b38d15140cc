// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jeranaias/socratic-tui/internal/model"
)

// FallbackDetail is shown when a failed response carries no detail field.
const FallbackDetail = "Failed to fetch"

// Error variables for common backend failures.
var (
	// ErrUnauthorized indicates the bearer credential was missing, invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested conversation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrBadRequest indicates the backend rejected the request body.
	ErrBadRequest = errors.New("bad request")

	// ErrServerError indicates a 5xx response.
	ErrServerError = errors.New("server error")

	// ErrResponseTooLarge indicates the body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response too large")

	// ErrNoBaseURL indicates the client was used without a backend URL.
	ErrNoBaseURL = errors.New("backend base URL not configured")
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.StatusCode)
}

// Unwrap maps the status code to a sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServerError
	case e.StatusCode >= 400:
		return ErrBadRequest
	default:
		return nil
	}
}

// Message returns the backend detail, or FallbackDetail when there is none.
func (e *Error) Message() string {
	if e.Detail == "" {
		return FallbackDetail
	}
	return e.Detail
}

// handleErrorResponse converts a non-2xx response into an *Error.
// The body is parsed as {detail}; unparseable bodies yield an empty detail.
func handleErrorResponse(statusCode int, body []byte) error {
	var eb model.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		eb.Detail = ""
	}
	return &Error{
		StatusCode: statusCode,
		Detail:     strings.TrimSpace(eb.Detail),
	}
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether err is a 401/403 from the backend.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// UserMessage returns the text shown in an error bubble for err:
// the backend detail (or FallbackDetail) for HTTP failures, else the error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
