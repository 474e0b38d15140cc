// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversation transcripts for `socratic export`.
//
// # Supported Formats
//
//   - markdown: YAML frontmatter plus one heading per turn
//   - json: the transcript as the backend's message shape
//   - html: a standalone page; reply markdown is rendered with blackfriday
//
// # Usage
//
//	exporter, err := export.ForFormat("html", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	path, err := export.ToFile("", export.NewTranscript(id, ref, msgs), exporter)
package export
