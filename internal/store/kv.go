// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the durable key-value store backing the storage
// manager.
package store

import (
	"context"
	"errors"
)

// =============================================================================
// WELL-KNOWN KEYS
// =============================================================================

// Key prefixes and singleton keys for persisted records.
const (
	// KeyStorageState is the singleton storage-state record.
	KeyStorageState = "STORAGE_STATE"

	// PrefixConversation + conversation id addresses one conversation.
	PrefixConversation = "CONV_"

	// PrefixLorebook + lorebook id addresses one lorebook.
	PrefixLorebook = "LO_"

	// Settings records, one per manager.
	KeyFormatSettings     = "SETTINGS_FORMAT"
	KeySamplingSettings   = "SETTINGS_SAMPLING"
	KeyConnectionSettings = "SETTINGS_CONNECTION"
)

// ConversationKey returns the store key for a conversation id.
func ConversationKey(id string) string {
	return PrefixConversation + id
}

// LorebookKey returns the store key for a lorebook id.
func LorebookKey(id string) string {
	return PrefixLorebook + id
}

// =============================================================================
// KV INTERFACE
// =============================================================================

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// KV is an asynchronous, durable mapping from string keys to serialized
// values, surviving process restarts.
//
// Implementations must make Put/Delete idempotent and last-write-wins;
// the storage manager relies on deterministic overwrites for its unordered
// startup loads.
type KV interface {
	// Get returns the value for key. The second return is false when the
	// key is absent (not an error).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix, in unspecified order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}
