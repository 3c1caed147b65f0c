// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt turns a conversation, its lorebooks, and a format preset
// into the single prompt string sent to the generation backend.
package prompt

import (
	"strings"

	"github.com/jeranaias/loom-tui/internal/model"
)

// DefaultScanMessages is how many recent (non-disabled) messages contribute
// to the trigger scan window.
const DefaultScanMessages = 4

// =============================================================================
// TRIGGER SCANNING
// =============================================================================

// ActiveEntry is one admitted lorebook entry, with its owning book for
// display purposes.
type ActiveEntry struct {
	Book  *model.Lorebook
	Entry *model.LorebookEntry
}

// ScanWindow concatenates the text of the last n non-disabled messages plus
// any pending (not yet appended) user input. Trigger matching runs over
// this window only; older history never re-activates an entry.
func ScanWindow(conv *model.Conversation, pending string, n int) string {
	if n <= 0 {
		n = DefaultScanMessages
	}
	enabled := conv.EnabledMessages()
	if len(enabled) > n {
		enabled = enabled[len(enabled)-n:]
	}

	var b strings.Builder
	for _, msg := range enabled {
		b.WriteString(msg.Text)
		b.WriteByte('\n')
	}
	b.WriteString(pending)
	return b.String()
}

// matches reports whether any trigger phrase occurs in the (already
// lowercased) window. Matching policy: case-insensitive substring - trigger
// phrases may contain spaces and punctuation, so whole-word matching would
// reject legitimate triggers.
func matches(entry *model.LorebookEntry, lowerWindow string) bool {
	for _, trigger := range entry.Triggers {
		trigger = strings.ToLower(strings.TrimSpace(trigger))
		if trigger == "" {
			continue
		}
		if strings.Contains(lowerWindow, trigger) {
			return true
		}
	}
	return false
}

// =============================================================================
// ACTIVATION & BUDGETS
// =============================================================================

// ActivateEntries scans the window and returns the admitted entries in
// precedence order: books in the given order, entries in stored order.
//
// Budgets: a maxInsertions of 0 (or maxTokens of 0) disables the lorebook
// feature entirely and short-circuits before scanning; -1 means uncapped.
// Admission stops at the first entry that would exceed either budget.
func ActivateEntries(
	books []*model.Lorebook,
	window string,
	maxInsertions, maxTokens int,
	est Estimator,
) []ActiveEntry {
	if maxInsertions == model.BudgetDisabled || maxTokens == model.BudgetDisabled {
		return nil
	}

	lower := strings.ToLower(window)
	var active []ActiveEntry
	usedTokens := 0

	for _, book := range books {
		for _, entry := range book.Entries {
			if !entry.Enabled {
				continue
			}
			if !matches(entry, lower) {
				continue
			}
			if maxInsertions != model.BudgetUnlimited && len(active) >= maxInsertions {
				return active
			}
			cost := est.Estimate(entry.Body)
			if maxTokens != model.BudgetUnlimited && usedTokens+cost > maxTokens {
				return active
			}
			usedTokens += cost
			active = append(active, ActiveEntry{Book: book, Entry: entry})
		}
	}
	return active
}

// RenderEntries joins admitted entry bodies into the lorebook text block.
func RenderEntries(active []ActiveEntry) string {
	if len(active) == 0 {
		return ""
	}
	bodies := make([]string, 0, len(active))
	for _, a := range active {
		bodies = append(bodies, a.Entry.Body)
	}
	return strings.Join(bodies, "\n")
}
