// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/russross/blackfriday"

	"github.com/jeranaias/socratic-tui/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a standalone HTML page. Markdown in
// replies is rendered; raw HTML in any message is dropped.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

const (
	htmlFlags = blackfriday.HTML_SKIP_HTML |
		blackfriday.HTML_SKIP_STYLE |
		blackfriday.HTML_SAFELINK |
		blackfriday.HTML_NOFOLLOW_LINKS |
		blackfriday.HTML_HREF_TARGET_BLANK |
		blackfriday.HTML_USE_XHTML

	markdownExtensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
		blackfriday.EXTENSION_TABLES |
		blackfriday.EXTENSION_FENCED_CODE |
		blackfriday.EXTENSION_AUTOLINK |
		blackfriday.EXTENSION_STRIKETHROUGH |
		blackfriday.EXTENSION_SPACE_HEADERS
)

// renderMarkdown converts message content to safe HTML.
func renderMarkdown(content string) string {
	renderer := blackfriday.HtmlRenderer(htmlFlags, "", "")
	out := blackfriday.MarkdownOptions([]byte(content), renderer, blackfriday.Options{
		Extensions: markdownExtensions,
	})
	return string(out)
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString("<meta name=\"generator\" content=\"socratic\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(t.Title))
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	fmt.Fprintf(&sb, "<header>\n<h1>%s</h1>\n", html.EscapeString(t.Title))
	if e.options.IncludeMetadata {
		sb.WriteString("<p class=\"meta\">")
		if t.CreatedAt != nil {
			fmt.Fprintf(&sb, "Started %s &middot; ", formatTimestamp(t.CreatedAt.Local()))
		}
		fmt.Fprintf(&sb, "%d messages</p>\n", len(t.Messages))
	}
	sb.WriteString("</header>\n<main>\n")

	for _, msg := range t.Messages {
		sb.WriteString(e.renderMessage(msg))
	}

	sb.WriteString("</main>\n")
	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "<footer>Exported from socratic on %s</footer>\n",
			t.Exported.Format("January 2, 2006 at 3:04 PM"))
	}
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

func (e *HTMLExporter) renderMessage(m model.Message) string {
	class := string(m.Role)
	if m.IsError {
		class = "error"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<section class=\"message %s\">\n", html.EscapeString(class))
	fmt.Fprintf(&sb, "<div class=\"role\">%s", html.EscapeString(roleLabel(m)))
	if e.options.ShowSource && m.IsAssistant() && m.Source != "" {
		fmt.Fprintf(&sb, " <span class=\"source\">%s</span>", html.EscapeString(m.Source))
	}
	sb.WriteString("</div>\n")

	if m.IsAssistant() && !m.IsError {
		sb.WriteString(renderMarkdown(m.Content))
	} else {
		fmt.Fprintf(&sb, "<p>%s</p>\n", strings.ReplaceAll(html.EscapeString(strings.TrimSpace(m.Content)), "\n", "<br/>"))
	}
	sb.WriteString("</section>\n")
	return sb.String()
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

const css = `<style>
body { margin: 0; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
.dark-theme { background: #1e1e2e; color: #cdd6f4; }
.light-theme { background: #ffffff; color: #1e1e2e; }
.container { max-width: 820px; margin: 0 auto; padding: 24px; }
.meta, footer { opacity: 0.7; font-size: 0.9em; }
.message { padding: 12px 16px; margin: 12px 0; border-radius: 8px; }
.user { background: rgba(137, 180, 250, 0.12); }
.assistant { background: rgba(166, 227, 161, 0.10); }
.error { background: rgba(243, 139, 168, 0.15); }
.role { font-weight: 600; margin-bottom: 4px; }
.source { font-weight: 400; font-size: 0.8em; opacity: 0.7; }
pre { overflow-x: auto; padding: 8px; background: rgba(0, 0, 0, 0.2); border-radius: 4px; }
</style>
`
