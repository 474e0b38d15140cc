// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export.go - Transcript export command.
//
// Command: export <id> [--format markdown|json|html] [-o FILE]
//
// Examples:
//
//	socratic export 5f1c2a
//	socratic export /chat/5f1c2a --format html -o gravity.html
//	socratic export 5f1c2a -o -          Write to stdout
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/socratic-tui/internal/conversation"
	"github.com/jeranaias/socratic-tui/internal/export"
	"github.com/jeranaias/socratic-tui/internal/model"
)

// HandleExport writes one conversation to a file in the requested format.
func HandleExport(args Args) error {
	app, err := Setup(args, false)
	if err != nil {
		return err
	}
	defer app.Close()
	return runExport(context.Background(), app, os.Stdout, args)
}

func runExport(ctx context.Context, app *App, out io.Writer, args Args) error {
	if args.ConversationID == "" {
		return &UsageError{Message: "export needs a conversation id"}
	}
	route, err := conversation.ParseRoute(args.ConversationID)
	if err != nil || route.IsNew() {
		return &UsageError{Message: fmt.Sprintf("invalid conversation %q", args.ConversationID)}
	}

	opts := export.DefaultOptions()
	opts.ShowSource = app.Config.UI.ShowSource
	exporter, err := export.ForFormat(args.Format, opts)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}

	reqCtx, cancel := app.RequestContext(ctx)
	defer cancel()

	token, err := app.Token(reqCtx)
	if err != nil {
		return err
	}
	hist, err := app.Client.Conversation(reqCtx, token, route.ID)
	if err != nil {
		return NewCommandError("export", "load", err)
	}

	// The list supplies the title; a failure here only costs the title.
	var ref model.ConversationRef
	if refs, err := app.Client.Conversations(reqCtx, token); err == nil {
		for _, r := range refs {
			if r.ID == route.ID {
				ref = r
				break
			}
		}
	} else {
		app.Log.Debug().Err(err).Msg("conversation list unavailable for export title")
	}

	t := export.NewTranscript(route.ID, ref, hist.Messages)

	if args.Output == "-" {
		return export.Write(out, t, exporter)
	}
	path, err := export.ToFile(args.Output, t, exporter)
	if err != nil {
		return NewCommandError("export", "write", err)
	}

	if args.JSON {
		return NewJSONResponse("export", ExportData{
			ConversationID: route.ID,
			Format:         strings.TrimPrefix(exporter.FileExtension(), "."),
			Path:           path,
			Messages:       len(t.Messages),
		}).To(out).Print()
	}
	if !args.Quiet {
		fmt.Fprintf(out, "%s %d messages to %s\n", SuccessStyle.Render("Exported"), len(t.Messages), path)
	}
	return nil
}
