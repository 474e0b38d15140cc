// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across socratic packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file replacement used for config and credentials
//   - TruncateWidth / PadWidth: terminal-cell aware truncation for the sidebar
//   - TruncateRunes: character-count truncation for conversation titles
package util
