// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings manages named configuration presets.
package settings

import "github.com/jeranaias/loom-tui/internal/store"

// =============================================================================
// FORMAT SETTINGS
// =============================================================================

// RoleFormat holds the turn delimiters for one participant role.
//
// LastPrefix/LastSuffix apply only to the final turn of that role in the
// assembled prompt. LastSuffix is a pointer because "override to empty" is
// the common case for the final assistant turn: instruction-tuned models
// typically want it left open so generation continues it, and nil must stay
// distinguishable from an explicit "".
type RoleFormat struct {
	Prefix     string  `json:"prefix"`
	Suffix     string  `json:"suffix"`
	LastPrefix string  `json:"last_prefix,omitempty"`
	LastSuffix *string `json:"last_suffix,omitempty"`
}

// SuffixOverride wraps a literal for the LastSuffix field.
func SuffixOverride(s string) *string {
	return &s
}

// EffectivePrefix returns the prefix for a turn, honoring the last-turn
// override.
func (r RoleFormat) EffectivePrefix(last bool) string {
	if last && r.LastPrefix != "" {
		return r.LastPrefix
	}
	return r.Prefix
}

// EffectiveSuffix returns the suffix for a turn, honoring the last-turn
// override when one is set, including an override to the empty string.
func (r RoleFormat) EffectiveSuffix(last bool) string {
	if last && r.LastSuffix != nil {
		return *r.LastSuffix
	}
	return r.Suffix
}

// FormatSettings is one prompt-format preset: the overall template with
// named placeholders plus per-role turn delimiters.
//
// Recognized template placeholders: {memory}, {authors_note}, {lorebook},
// {history}.
type FormatSettings struct {
	Name     string     `json:"name"`
	Template string     `json:"template"`
	User     RoleFormat `json:"user"`
	Bot      RoleFormat `json:"bot"`
}

// Built-in format preset ids.
const (
	FormatPlain    = "plain"
	FormatInstruct = "instruct"
)

// builtinFormats are always resolvable.
func builtinFormats() map[string]FormatSettings {
	return map[string]FormatSettings{
		FormatPlain: {
			Name:     "Plain",
			Template: "{memory}\n{lorebook}\n{history}",
			User: RoleFormat{Prefix: "{username}: ", Suffix: "\n"},
			Bot: RoleFormat{
				Prefix: "{username}: ",
				Suffix: "\n",
				// The final bot turn drops the trailing newline so generation
				// continues on the same line.
				LastSuffix: SuffixOverride(""),
			},
		},
		FormatInstruct: {
			Name:     "Instruct",
			Template: "{memory}\n{lorebook}\n{history}",
			User: RoleFormat{
				Prefix: "<|im_start|>user\n",
				Suffix: "<|im_end|>\n",
			},
			Bot: RoleFormat{
				Prefix: "<|im_start|>assistant\n",
				Suffix: "<|im_end|>\n",
				// The final assistant turn stays open for continuation.
				LastSuffix: SuffixOverride(""),
			},
		},
	}
}

// NewFormatManager returns the format preset manager.
func NewFormatManager(kv store.KV) *Manager[FormatSettings] {
	return NewManager(kv, store.KeyFormatSettings, FormatPlain, builtinFormats())
}
