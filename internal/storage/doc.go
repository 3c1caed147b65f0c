// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage owns all in-memory domain state and mediates every read
// and write to the persistent key-value store.
//
// # Manager
//
// The Manager is the single authority for conversations, lorebooks, and the
// storage-state index. UI code reads through its accessors, mutates through
// its methods, and registers one callback per concern:
//
//   - conversation loaded (startup install, switch, new conversation)
//   - lorebook updated (any lorebook or budget change)
//   - rerender (message content changed and the caller wants a repaint)
//   - message deleted (carries the deleted key for dependent-state cleanup)
//
// Callbacks are single-slot: registering a new one replaces the previous,
// and nil disables the hook. They fire synchronously after the in-memory
// change is applied.
//
// # Persistence
//
// Every mutation is persisted. Persistence failures are logged and the
// in-memory state remains the source of truth; the next successful save
// reconciles. Records read back from the store are validated before they
// are trusted - a record failing validation is dropped, never fatal.
package storage
