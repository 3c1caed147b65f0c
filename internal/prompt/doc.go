// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt turns a conversation, its lorebooks, and a format preset
// into the single prompt string sent to the generation backend.
//
// # Assembly
//
// Building a prompt proceeds in order:
//
//  1. Resolve enabled lorebooks in the conversation's order, each
//     contributing entries in stored order.
//  2. Activate entries whose triggers match the scan window (the recent
//     conversation text), subject to the global insertion and token
//     budgets.
//  3. Exclude disabled messages from history.
//  4. Substitute memory, author's note, lorebook text, and rendered history
//     into the format template's named placeholders, applying per-role
//     prefixes/suffixes with the last-turn overrides.
//
// Token costs are estimated by an Estimator; estimates are cached on each
// message and invalidated (set to nil) whenever its text changes.
package prompt
