// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt turns a conversation, its lorebooks, and a format preset
// into the single prompt string sent to the generation backend.
package prompt

import (
	"strings"

	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/settings"
)

// Template placeholders recognized in a format preset.
const (
	PlaceholderMemory     = "{memory}"
	PlaceholderAuthorNote = "{authors_note}"
	PlaceholderLorebook   = "{lorebook}"
	PlaceholderHistory    = "{history}"
)

// =============================================================================
// ASSEMBLY INPUT
// =============================================================================

// Input collects everything prompt assembly needs. Books must already be
// resolved to loaded lorebooks in the conversation's precedence order
// (dangling ids filtered by the caller).
type Input struct {
	Conversation *model.Conversation
	Books        []*model.Lorebook
	Format       settings.FormatSettings

	// Global lorebook budgets (0 = feature off, -1 = uncapped).
	MaxInsertions int
	MaxTokens     int

	// Pending is user input not yet appended to history; it participates
	// in the trigger scan window.
	Pending string

	// ScanMessages overrides the scan window size; 0 uses the default.
	ScanMessages int
}

// =============================================================================
// BUILD
// =============================================================================

// Build produces the final prompt string.
func Build(in Input, est Estimator) string {
	conv := in.Conversation

	window := ScanWindow(conv, in.Pending, in.ScanMessages)
	active := ActivateEntries(in.Books, window, in.MaxInsertions, in.MaxTokens, est)
	loreText := RenderEntries(active)

	// The author's note normally rides inside the history block at its
	// configured offset. A template with an explicit {authors_note}
	// placeholder claims it instead.
	noteInTemplate := strings.Contains(in.Format.Template, PlaceholderAuthorNote)
	noteForHistory := conv.AuthorNote
	if noteInTemplate {
		noteForHistory = ""
	}

	history := renderHistory(conv, in.Format, noteForHistory)

	out := in.Format.Template
	out = strings.ReplaceAll(out, PlaceholderMemory, conv.Memory)
	out = strings.ReplaceAll(out, PlaceholderAuthorNote, conv.AuthorNote)
	out = strings.ReplaceAll(out, PlaceholderLorebook, loreText)
	out = strings.ReplaceAll(out, PlaceholderHistory, history)
	return out
}

// renderHistory emits prefixed/suffixed turns for every enabled message,
// with the last turn of each role using that role's last-turn overrides.
// A non-empty authorNote is inserted among the turns, AuthorNotePosition
// turns from the end (0 = after the final turn), clamped to the history
// length.
func renderHistory(conv *model.Conversation, format settings.FormatSettings, authorNote string) string {
	msgs := conv.EnabledMessages()

	lastUser, lastBot := -1, -1
	for i, msg := range msgs {
		switch msg.Role {
		case model.RoleUser:
			lastUser = i
		case model.RoleBot:
			lastBot = i
		}
	}

	noteAt := -1
	if authorNote != "" {
		offset := conv.AuthorNotePosition
		if offset < 0 {
			offset = 0
		}
		if offset > len(msgs) {
			offset = len(msgs)
		}
		noteAt = len(msgs) - offset
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i == noteAt {
			b.WriteString(authorNote)
			b.WriteByte('\n')
		}

		role := format.User
		last := i == lastUser
		if msg.Role == model.RoleBot {
			role = format.Bot
			last = i == lastBot
		}

		prefix := strings.ReplaceAll(role.EffectivePrefix(last), "{username}", msg.Username)
		suffix := strings.ReplaceAll(role.EffectiveSuffix(last), "{username}", msg.Username)
		b.WriteString(prefix)
		b.WriteString(msg.Text)
		b.WriteString(suffix)
	}
	if noteAt == len(msgs) && noteAt >= 0 {
		b.WriteString(authorNote)
		b.WriteByte('\n')
	}
	return b.String()
}
