// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Service health command.
//
// Command: status
// Aliases: s
//
// Examples:
//
//	socratic status          Human-readable health
//	socratic status --json   Machine-readable health
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/socratic-tui/internal/health"
	"github.com/jeranaias/socratic-tui/internal/localmode"
)

// HandleStatus runs one health check and prints the result.
func HandleStatus(args Args) error {
	app, err := Setup(args, false)
	if err != nil {
		return err
	}
	defer app.Close()
	return runStatus(context.Background(), app, os.Stdout, args.JSON)
}

func runStatus(ctx context.Context, app *App, out io.Writer, asJSON bool) error {
	reqCtx, cancel := app.RequestContext(ctx)
	defer cancel()

	h := app.Poller().Refresh(reqCtx)

	// The user is informational; status works signed out.
	user, _ := app.User(reqCtx)

	if asJSON {
		return NewJSONResponse("status", StatusData{
			BaseURL:   app.Config.Backend.BaseURL,
			LocalOnly: localmode.Enabled(),
			Health:    h,
			Advisory:  health.Advisory(&h),
			User:      user.Label(),
		}).To(out).Print()
	}

	fmt.Fprintln(out, TitleStyle.Render("Socratic AI Status"))
	fmt.Fprintf(out, "%s %s\n", RenderLabel("Backend"), ValueStyle.Render(app.Config.Backend.BaseURL))
	if localmode.Enabled() {
		fmt.Fprintf(out, "%s %s\n", RenderLabel("Mode"), WarningStyle.Render(localmode.StatusIndicator()))
	}
	fmt.Fprintf(out, "%s %s\n", RenderLabel("Status"), RenderHealth(&h))
	fmt.Fprintf(out, "%s %s\n", RenderLabel("Service"), ValueStyle.Render(h.Service))
	if h.ChatEnabled {
		fmt.Fprintf(out, "%s %s\n", RenderLabel("Chat"), SuccessStyle.Render("enabled"))
	} else {
		fmt.Fprintf(out, "%s %s\n", RenderLabel("Chat"), ErrorStyle.Render("disabled"))
	}
	if h.Details != nil {
		fmt.Fprintf(out, "%s %s\n", RenderLabel("GPU tier"), RenderTier(h.Details.Colab))
		fmt.Fprintf(out, "%s %s\n", RenderLabel("CPU fallback"), RenderTier(h.Details.HuggingFace))
	}
	if user != nil {
		fmt.Fprintf(out, "%s %s\n", RenderLabel("Signed in as"), ValueStyle.Render(user.Label()))
	} else {
		fmt.Fprintf(out, "%s %s\n", RenderLabel("Signed in as"), DimStyle.Render("nobody"))
	}
	if a := health.Advisory(&h); a != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, WarningStyle.Render(a))
	}
	return nil
}
