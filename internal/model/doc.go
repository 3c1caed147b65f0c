// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// lorebooks, and the persisted storage state.
//
// # Overview
//
// The model package defines the domain entities persisted by the storage
// manager and consumed by prompt assembly:
//
//   - Conversation: one chat session (messages, memory, author's note,
//     prompt format, enabled lorebooks)
//   - Message: one turn, identified by an immutable key
//   - Lorebook / LorebookEntry: trigger-activated context injection rules
//   - StorageState: the process-wide index of persisted records and the
//     global lorebook budgets
//
// Every entity carries a Validate method. Records loaded from the persistent
// store are validated before they are trusted; a record that fails validation
// is treated as absent, never as a fatal error.
package model
