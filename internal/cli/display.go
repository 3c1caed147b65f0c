// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// display.go - Markdown rendering and output helpers for the loom CLI.
//
// USABILITY: Markdown rendering for better CLI experience

package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for markdown output.
// USABILITY: Renders markdown replies with syntax highlighting and formatting.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayReply displays a bot reply with markdown rendering when appropriate.
// Only renders markdown when stdout is a TTY to avoid corrupting piped output.
func displayReply(text string, markdown bool) {
	if markdown && IsStdoutTTY() {
		fmt.Print(renderMarkdown(text))
	} else {
		fmt.Print(text)
	}
}

// =============================================================================
// STREAMING CALLBACK
// =============================================================================

// streamToStdout prints tokens directly to stdout as they arrive.
func streamToStdout(token string) {
	fmt.Print(token)
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatNumber formats an integer with thousands separators (1234567 ->
// "1,234,567").
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if len(s) <= 3 {
		return s
	}

	var result []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digit)
	}
	return string(result)
}
