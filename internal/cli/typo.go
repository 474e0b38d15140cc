// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// typo.go - Command suggestion for typo correction.
package cli

import (
	"strings"
)

// validCommands lists every command and alias ParseArgs accepts.
var validCommands = []string{
	"tui",
	"chat",
	"status",
	"conversations",
	"suggest",
	"export",
	"serve",
	"config",
	"version",
	"help",
	// Aliases
	"c",
	"s",
	"ls",
	"list",
	"project",
	"server",
}

// maxSuggestDistance is the largest edit distance still offered as a suggestion.
const maxSuggestDistance = 2

// SuggestCommand returns the closest valid command to input, or "" when
// nothing is close enough. Single letters are only matched exactly.
func SuggestCommand(input string) string {
	input = strings.ToLower(input)
	if len(input) < 2 {
		return ""
	}

	best := ""
	bestDist := maxSuggestDistance + 1
	for _, cmd := range validCommands {
		if len(cmd) < 3 {
			continue
		}
		if d := levenshtein(input, cmd); d < bestDist {
			best, bestDist = cmd, d
		}
	}
	if best == input {
		return ""
	}
	return best
}

// levenshtein returns the edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
