// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/socratic-tui/internal/model"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is a loaded conversation ready for export.
type Transcript struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	Exported  time.Time       `json:"exported"`
	Messages  []model.Message `json:"messages"`
}

// NewTranscript builds a transcript from history. ref may be the zero value
// when the conversation is not in the caller's list.
func NewTranscript(id string, ref model.ConversationRef, msgs []model.Message) *Transcript {
	title := ref.Title
	if title == "" {
		title = model.UntitledConversation
	}
	return &Transcript{
		ID:        id,
		Title:     title,
		CreatedAt: ref.CreatedAt,
		Exported:  time.Now(),
		Messages:  model.CloneMessages(msgs),
	}
}

// Validation errors.
var (
	ErrNilTranscript = errors.New("transcript is nil")
	ErrNoMessages    = errors.New("conversation has no messages")
	ErrUnknownFormat = errors.New("unknown export format")
)

func (t *Transcript) validate() error {
	if t == nil {
		return ErrNilTranscript
	}
	if len(t.Messages) == 0 {
		return ErrNoMessages
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	// Export converts a transcript to the target format.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type for the format.
	MimeType() string
}

// Options configures export behavior.
type Options struct {
	// IncludeMetadata adds the title block and export details.
	IncludeMetadata bool

	// ShowSource labels assistant replies with the tier that produced them.
	ShowSource bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata: true,
		ShowSource:      false,
		Theme:           "dark",
	}
}

// Formats lists the accepted --format values.
var Formats = []string{"markdown", "json", "html"}

// ForFormat returns the exporter for name. "md" is accepted for markdown.
func ForFormat(name string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, name, strings.Join(Formats, ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Write renders t with exporter into w.
func Write(w io.Writer, t *Transcript, exporter Exporter) error {
	content, err := exporter.Export(t)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ToFile writes t to path, or to DefaultFilename in the current directory
// when path is empty. It returns the path written.
func ToFile(path string, t *Transcript, exporter Exporter) (string, error) {
	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if path == "" {
		path = DefaultFilename(t, exporter)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// DefaultFilename is conversation_<title>_<timestamp><ext>.
func DefaultFilename(t *Transcript, exporter Exporter) string {
	return fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(t.Title),
		t.Exported.Format("20060102_150405"),
		exporter.FileExtension(),
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(s)
	if len(runes) > 50 {
		runes = runes[:50]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}
	return string(result)
}

// roleLabel is the heading used for each turn.
func roleLabel(m model.Message) string {
	if m.IsError {
		return "Error"
	}
	return m.Role.DisplayName()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
