// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/socratic-tui/internal/localmode"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ollama"
)

// Tier is one source of tutor replies.
type Tier interface {
	// Name is the service name reported in /health and on replies.
	Name() string

	// Probe returns nil when the tier can currently answer.
	Probe(ctx context.Context) error

	// Complete answers the conversation under the given system prompt.
	Complete(ctx context.Context, msgs []model.Message, system string) (string, error)
}

// ErrEmptyReply is returned when a tier answers with no text.
var ErrEmptyReply = errors.New("tier returned an empty reply")

// =============================================================================
// PRIMARY TIER (OLLAMA)
// =============================================================================

// OllamaTier serves replies from an Ollama server.
type OllamaTier struct {
	client *ollama.Client
	opts   *ollama.Options
}

// NewOllamaTier wraps an Ollama client as the primary tier.
func NewOllamaTier(client *ollama.Client) *OllamaTier {
	return &OllamaTier{
		client: client,
		opts:   &ollama.Options{Temperature: 0.7, NumPredict: 512},
	}
}

func (t *OllamaTier) Name() string { return model.ServicePrimary }

func (t *OllamaTier) Probe(ctx context.Context) error {
	return t.client.CheckRunning(ctx)
}

func (t *OllamaTier) Complete(ctx context.Context, msgs []model.Message, system string) (string, error) {
	req := make([]ollama.Message, 0, len(msgs)+1)
	req = append(req, ollama.NewSystemMessage(system))
	for _, m := range conversational(msgs) {
		req = append(req, ollama.Message{Role: m.Role.String(), Content: m.Content})
	}

	resp, err := t.client.Chat(ctx, req, t.opts)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// =============================================================================
// FALLBACK TIER (OPENAI-COMPATIBLE)
// =============================================================================

// OpenAITier serves replies from an OpenAI-compatible chat completions endpoint.
type OpenAITier struct {
	api     *openai.Client
	baseURL string
	model   string
}

// NewOpenAITier creates the fallback tier. baseURL includes the API version
// path, for example https://host/v1.
func NewOpenAITier(baseURL, key, modelName string) *OpenAITier {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return &OpenAITier{
		api:     openai.NewClientWithConfig(cfg),
		baseURL: cfg.BaseURL,
		model:   modelName,
	}
}

func (t *OpenAITier) Name() string { return model.ServiceFallback }

// Probe lists models; a remote endpoint is refused in local-only mode.
func (t *OpenAITier) Probe(ctx context.Context) error {
	if err := t.allowed(); err != nil {
		return err
	}
	if _, err := t.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (t *OpenAITier) Complete(ctx context.Context, msgs []model.Message, system string) (string, error) {
	if err := t.allowed(); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       t.model,
		MaxTokens:   512,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
		},
	}
	for _, m := range conversational(msgs) {
		role := openai.ChatMessageRoleUser
		if m.IsAssistant() {
			role = openai.ChatMessageRoleAssistant
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := t.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// allowed applies local-only mode to the endpoint host.
func (t *OpenAITier) allowed() error {
	return localmode.ValidateURL(t.baseURL)
}

// conversational drops error bubbles and blank turns before a model sees them.
func conversational(msgs []model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsError || m.IsBlank() || !m.Role.Valid() {
			continue
		}
		out = append(out, m)
	}
	return out
}
