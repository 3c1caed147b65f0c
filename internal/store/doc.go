// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the durable key-value store backing the storage
// manager.
//
// # Backends
//
// Two backends implement the KV interface:
//
//   - SQLite (modernc.org/sqlite, pure Go): a single kv table in WAL mode.
//     Preferred backend.
//   - File: one JSON file per key with atomic writes. Fallback when SQLite
//     initialization fails (read-only filesystems, locked databases).
//
// Open walks an ordered preference list and falls back to the next backend
// when initialization fails; startup only fails when every backend does.
//
// # Keys
//
// Records are addressed by well-known key prefixes: the singleton
// STORAGE_STATE record, CONV_<uuid> conversations, LO_<uuid> lorebooks, and
// one SETTINGS_* record per settings manager.
package store
