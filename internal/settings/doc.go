// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings manages named configuration presets.
//
// Three managers exist, all over the same generic keyed-preset core:
//
//   - Format: prompt template and per-role turn prefixes/suffixes
//   - Sampling: generation parameters sent to the backend
//   - Connection: endpoint, model and timeout for the backend
//
// Each manager holds a map from preset id to record plus a "current id"
// pointer, persisted as a single record in the key-value store. Built-in
// presets are always resolvable even when absent from persisted storage;
// they are the fallback for any lookup miss, so the id space is never empty
// and "reset to default" always works.
package settings
