// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tutor produces Socratic replies for the dev backend.
//
// A Responder holds up to two tiers. The primary tier (an Ollama server)
// answers when reachable; otherwise the fallback tier (any OpenAI-compatible
// endpoint) answers and the service reports itself as slow.
package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/jeranaias/socratic-tui/internal/config"
	"github.com/jeranaias/socratic-tui/internal/model"
	"github.com/jeranaias/socratic-tui/internal/ollama"
)

// ErrUnavailable is returned when no tier could answer.
var ErrUnavailable = errors.New("chat service unavailable")

// DefaultProbeTimeout bounds each tier probe during Health.
const DefaultProbeTimeout = 3 * time.Second

// Reply is a tutor answer and the tier that produced it.
type Reply struct {
	Text   string
	Source string
}

// TierStates reports each tier as online, offline or not_configured.
type TierStates struct {
	Primary  string
	Fallback string
}

// Health derives the service health from tier states.
func (s TierStates) Health() model.ServiceHealth {
	h := model.ServiceHealth{
		Details: &model.ServiceDetails{Colab: s.Primary, HuggingFace: s.Fallback},
	}
	switch {
	case s.Primary == model.TierOnline:
		h.Status, h.Service, h.ChatEnabled = model.StatusOnline, model.ServicePrimary, true
	case s.Fallback == model.TierOnline:
		h.Status, h.Service, h.ChatEnabled = model.StatusSlow, model.ServiceFallback, true
	default:
		h.Status, h.Service, h.ChatEnabled = model.StatusOffline, model.ServiceNone, false
	}
	return h
}

// Responder routes prompts to the first tier that answers.
type Responder struct {
	primary      Tier
	fallback     Tier
	probeTimeout time.Duration
	log          zerolog.Logger
}

// NewResponder creates a responder. Either tier may be nil.
func NewResponder(primary, fallback Tier, log zerolog.Logger) *Responder {
	return &Responder{
		primary:      primary,
		fallback:     fallback,
		probeTimeout: DefaultProbeTimeout,
		log:          log,
	}
}

// FromConfig builds the tiers named by the server config. An empty URL
// leaves that tier unconfigured.
func FromConfig(cfg config.ServerConfig, log zerolog.Logger) *Responder {
	var primary, fallback Tier
	if cfg.OllamaURL != "" {
		primary = NewOllamaTier(ollama.NewClient(ollama.Config{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaModel,
		}))
	}
	if cfg.FallbackURL != "" {
		fallback = NewOpenAITier(cfg.FallbackURL, cfg.FallbackKey, cfg.FallbackModel)
	}
	return NewResponder(primary, fallback, log)
}

// Tiers reports the current state of each tier. Probes run concurrently.
func (r *Responder) Tiers(ctx context.Context) TierStates {
	var states TierStates
	done := make(chan struct{}, 2)
	go func() {
		states.Primary = r.probe(ctx, r.primary)
		done <- struct{}{}
	}()
	go func() {
		states.Fallback = r.probe(ctx, r.fallback)
		done <- struct{}{}
	}()
	<-done
	<-done
	return states
}

func (r *Responder) probe(ctx context.Context, t Tier) string {
	if t == nil {
		return model.TierNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	if err := t.Probe(ctx); err != nil {
		r.log.Debug().Err(err).Str("tier", t.Name()).Msg("tier probe failed")
		return model.TierOffline
	}
	return model.TierOnline
}

// Reply answers the conversation, trying the primary tier first.
func (r *Responder) Reply(ctx context.Context, history []model.Message) (Reply, error) {
	text, source, err := r.complete(ctx, history, SystemPrompt)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Source: source}, nil
}

func (r *Responder) complete(ctx context.Context, msgs []model.Message, system string) (string, string, error) {
	var errs error
	for _, t := range []Tier{r.primary, r.fallback} {
		if t == nil {
			continue
		}
		text, err := t.Complete(ctx, msgs, system)
		if err == nil {
			return text, t.Name(), nil
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		r.log.Warn().Err(err).Str("tier", t.Name()).Msg("tier failed to reply")
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	if errs != nil {
		return "", "", fmt.Errorf("%w: %v", ErrUnavailable, errs)
	}
	return "", "", ErrUnavailable
}

// =============================================================================
// PROJECT SUGGESTIONS
// =============================================================================

// maxTopics caps how many past questions feed a suggestion.
const maxTopics = 20

// SuggestProject proposes one project drawn from the student's past questions.
func (r *Responder) SuggestProject(ctx context.Context, questions []string) (*model.ProjectSuggestion, error) {
	topics := noHistoryTopics
	if len(questions) > 0 {
		if len(questions) > maxTopics {
			questions = questions[len(questions)-maxTopics:]
		}
		var b strings.Builder
		b.WriteString("Topics the student asked about:\n")
		for _, q := range questions {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(q))
			b.WriteString("\n")
		}
		topics = b.String()
	}

	text, source, err := r.complete(ctx, []model.Message{model.NewUserMessage(topics)}, projectPrompt)
	if err != nil {
		return nil, err
	}
	s := ParseSuggestion(text)
	s.Source = source
	return s, nil
}

// ParseSuggestion reads a suggestion from a model reply. Replies that are not
// the requested JSON are kept whole as the summary.
func ParseSuggestion(text string) *model.ProjectSuggestion {
	raw := text
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	var s model.ProjectSuggestion
	if err := json.Unmarshal([]byte(raw), &s); err == nil && strings.TrimSpace(s.Title) != "" {
		steps := s.Steps[:0]
		for _, step := range s.Steps {
			if step = strings.TrimSpace(step); step != "" {
				steps = append(steps, step)
			}
		}
		s.Steps = steps
		return &s
	}
	return &model.ProjectSuggestion{
		Title:   "Suggested project",
		Summary: strings.TrimSpace(text),
	}
}
