// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations.go - Conversation list command.
//
// Command: conversations
// Aliases: ls, list
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/socratic-tui/internal/util"
)

// HandleConversations lists the signed-in user's conversations, newest first.
func HandleConversations(args Args) error {
	app, err := Setup(args, false)
	if err != nil {
		return err
	}
	defer app.Close()
	return runConversations(context.Background(), app, os.Stdout, args)
}

func runConversations(ctx context.Context, app *App, out io.Writer, args Args) error {
	reqCtx, cancel := app.RequestContext(ctx)
	defer cancel()

	token, err := app.Token(reqCtx)
	if err != nil {
		return err
	}
	refs, err := app.Client.Conversations(reqCtx, token)
	if err != nil {
		return NewCommandError("conversations", "list", err)
	}

	if args.JSON {
		return NewJSONResponse("conversations", ConversationsData{
			Count:         len(refs),
			Conversations: refs,
		}).To(out).Print()
	}

	if len(refs) == 0 {
		if !args.Quiet {
			fmt.Fprintln(out, DimStyle.Render("No conversations yet. Start one with 'socratic chat'."))
		}
		return nil
	}

	titleWidth := GetTerminalWidth() - 40
	for _, ref := range refs {
		created := ""
		if t := ref.Created(); !t.IsZero() {
			created = t.Local().Format("2006-01-02 15:04")
		}
		if args.Quiet {
			fmt.Fprintln(out, ref.ID)
			continue
		}
		fmt.Fprintf(out, "%s  %s  %s\n",
			ValueStyle.Render(util.PadWidth(ref.ID, 12)),
			DimStyle.Render(util.PadWidth(created, 16)),
			util.TruncateWidth(ref.DisplayTitle(), titleWidth))
	}
	return nil
}
