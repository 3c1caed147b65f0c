// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the loom command line interface.
//
// The default command is an interactive chat REPL over the persisted
// conversation store, with line editing and input history (peterh/liner),
// markdown rendering of replies (glamour), and slash commands for managing
// conversations, lorebooks, and settings presets. A one-shot "ask" command
// runs a single generation turn without entering the REPL.
//
// Output adapts to the environment: colors and markdown are only used when
// stdout is a TTY, and NO_COLOR is respected.
package cli
