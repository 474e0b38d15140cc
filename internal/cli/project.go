// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// project.go - Holistic project suggestion command.
//
// Command: suggest
// Aliases: project
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/socratic-tui/internal/conversation"
)

// HandleSuggest asks the backend for a project built from the user's
// recent questions.
func HandleSuggest(args Args) error {
	app, err := Setup(args, false)
	if err != nil {
		return err
	}
	defer app.Close()
	return runSuggest(context.Background(), app, os.Stdout, args.JSON)
}

func runSuggest(ctx context.Context, app *App, out io.Writer, asJSON bool) error {
	reqCtx, cancel := app.RequestContext(ctx)
	defer cancel()

	token, err := app.Token(reqCtx)
	if err != nil {
		return err
	}
	s, err := app.Client.SuggestProject(reqCtx, token)
	if err != nil {
		return NewCommandError("suggest", "request", err)
	}

	if asJSON {
		return NewJSONResponse("suggest", SuggestData{Suggestion: s}).To(out).Print()
	}

	text := conversation.FormatSuggestion(s)
	if app.Config.UI.Markdown && IsStdoutTTY() {
		if r := newRenderer(app.Config.UI.Theme); r != nil {
			if rendered, err := r.Render(text); err == nil {
				text = rendered
			}
		}
	}
	fmt.Fprintln(out, text)
	return nil
}
