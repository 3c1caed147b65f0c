// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings manages named configuration presets.
package settings

import "github.com/jeranaias/loom-tui/internal/store"

// =============================================================================
// CONNECTION SETTINGS
// =============================================================================

// ConnectionSettings is one backend-connection preset.
type ConnectionSettings struct {
	Name string `json:"name"`

	// Endpoint is the completions URL the generation request is posted to.
	// Uses an explicit IPv4 loopback default to avoid IPv6 resolution
	// issues on Windows.
	Endpoint string `json:"endpoint"`

	// APIKey is sent as a bearer token when non-empty.
	APIKey string `json:"api_key,omitempty"`

	// Model is the backend model identifier.
	Model string `json:"model"`

	// TimeoutSecs bounds connection establishment only; an open stream is
	// never timed out internally, interruption is the sole cancellation
	// mechanism.
	TimeoutSecs int `json:"timeout_secs"`
}

// ConnectionLocal is the built-in connection preset id.
const ConnectionLocal = "local"

// builtinConnections are always resolvable.
func builtinConnections() map[string]ConnectionSettings {
	return map[string]ConnectionSettings{
		ConnectionLocal: {
			Name:        "Local",
			Endpoint:    "http://127.0.0.1:11434/api/generate",
			Model:       "llama3",
			TimeoutSecs: 30,
		},
	}
}

// NewConnectionManager returns the connection preset manager.
func NewConnectionManager(kv store.KV) *Manager[ConnectionSettings] {
	return NewManager(kv, store.KeyConnectionSettings, ConnectionLocal, builtinConnections())
}
