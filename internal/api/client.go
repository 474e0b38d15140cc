// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the tutoring backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/localmode"
	"github.com/jeranaias/socratic-tui/internal/model"
)

// Configuration constants for the backend client.
const (
	// DefaultTimeout bounds every request that has no deadline of its own.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "socratic-tui"

	// RequestIDHeader carries a per-request uuid for log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Client talks to the backend REST API.
// Authenticated calls take the bearer token as an argument; the client never
// stores credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	log        zerolog.Logger
}

// New creates a client for the backend at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		userAgent: DefaultUserAgent,
		log:       zerolog.Nop(),
	}
}

// WithBaseURL sets the backend base URL.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(strings.TrimSpace(u), "/")
	return c
}

// WithTimeout sets the transport-level request timeout. Zero disables it.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithLogger sets the logger used for request tracing.
func (c *Client) WithLogger(l zerolog.Logger) *Client {
	c.log = l
	return c
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Health performs the unauthenticated GET /health.
func (c *Client) Health(ctx context.Context) (*model.ServiceHealth, error) {
	var h model.ServiceHealth
	if err := c.do(ctx, http.MethodGet, "/health", "", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Conversation fetches the message history of conversation id.
// A missing messages field decodes as an empty history.
func (c *Client) Conversation(ctx context.Context, token, id string) (*model.ConversationHistory, error) {
	var hist model.ConversationHistory
	path := "/conversations/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &hist); err != nil {
		return nil, err
	}
	if hist.Messages == nil {
		hist.Messages = []model.Message{}
	}
	return &hist, nil
}

// Conversations lists the user's conversations.
func (c *Client) Conversations(ctx context.Context, token string) ([]model.ConversationRef, error) {
	var refs []model.ConversationRef
	if err := c.do(ctx, http.MethodGet, "/conversations", token, nil, &refs); err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []model.ConversationRef{}
	}
	return refs, nil
}

// Chat sends one new user message and returns the tutor's reply.
func (c *Client) Chat(ctx context.Context, token string, req model.ChatRequest) (*model.ChatReply, error) {
	var reply model.ChatReply
	if err := c.do(ctx, http.MethodPost, "/chat", token, req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// SuggestProject asks the backend for a project built from the user's history.
func (c *Client) SuggestProject(ctx context.Context, token string) (*model.ProjectSuggestion, error) {
	var s model.ProjectSuggestion
	if err := c.do(ctx, http.MethodPost, "/suggest-holistic-project", token, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs one request and decodes a 2xx JSON body into out.
// Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	if c.baseURL == "" {
		return ErrNoBaseURL
	}
	if err := localmode.ValidateURL(c.baseURL); err != nil {
		return fmt.Errorf("backend URL rejected: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: Drop the credential so it never reaches a log line.
	req.Header.Del("Authorization")

	if err != nil {
		c.log.Debug().Str("method", method).Str("path", path).Str("request_id", reqID).
			Err(err).Msg("request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).Str("request_id", reqID).
		Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("backend response")

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// readResponse reads the body with a size limit.
//
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}
