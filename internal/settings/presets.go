// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings manages named configuration presets.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/loom-tui/internal/store"
)

// =============================================================================
// GENERIC PRESET MANAGER
// =============================================================================

// record is the persisted shape of one manager: user presets plus the
// current selection.
type record[T any] struct {
	CurrentID string       `json:"current_id"`
	Items     map[string]T `json:"items"`
}

// Manager is a keyed collection of named presets with a current-selection
// pointer. Built-ins are always resolvable; user presets may shadow them.
type Manager[T any] struct {
	kv        store.KV
	key       string
	defaultID string
	builtins  map[string]T

	items   map[string]T
	current string
}

// NewManager creates a manager persisting under key, with the given
// built-in presets. defaultID must name a built-in; it is the fallback for
// every lookup miss.
func NewManager[T any](kv store.KV, key, defaultID string, builtins map[string]T) *Manager[T] {
	if _, ok := builtins[defaultID]; !ok {
		panic(fmt.Sprintf("settings: default id %q is not a builtin of %s", defaultID, key))
	}
	return &Manager[T]{
		kv:        kv,
		key:       key,
		defaultID: defaultID,
		builtins:  builtins,
		items:     make(map[string]T),
		current:   defaultID,
	}
}

// Load reads the persisted record. An absent or malformed record leaves the
// manager at built-in defaults; never fatal.
func (m *Manager[T]) Load(ctx context.Context) {
	data, found, err := m.kv.Get(ctx, m.key)
	if err != nil {
		log.Printf("settings: failed to read %s, using defaults: %v", m.key, err)
		return
	}
	if !found {
		return
	}

	var rec record[T]
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("settings: dropping malformed %s record: %v", m.key, err)
		return
	}
	if rec.Items != nil {
		m.items = rec.Items
	}
	if rec.CurrentID != "" {
		m.current = rec.CurrentID
	}
}

// persist writes the record. Persistence failure is logged; in-memory state
// stays authoritative and the next successful save reconciles.
func (m *Manager[T]) persist(ctx context.Context) {
	data, err := json.Marshal(record[T]{CurrentID: m.current, Items: m.items})
	if err != nil {
		log.Printf("settings: failed to marshal %s: %v", m.key, err)
		return
	}
	if err := m.kv.Put(ctx, m.key, data); err != nil {
		log.Printf("settings: failed to persist %s: %v", m.key, err)
	}
}

// Get returns the preset with the given id. Lookup order: user presets,
// built-ins, then the built-in default.
func (m *Manager[T]) Get(id string) T {
	if preset, ok := m.items[id]; ok {
		return preset
	}
	if preset, ok := m.builtins[id]; ok {
		return preset
	}
	return m.builtins[m.defaultID]
}

// Has reports whether id names a user preset or a built-in.
func (m *Manager[T]) Has(id string) bool {
	if _, ok := m.items[id]; ok {
		return true
	}
	_, ok := m.builtins[id]
	return ok
}

// CurrentID returns the current selection pointer.
func (m *Manager[T]) CurrentID() string {
	return m.current
}

// Current resolves the current selection, falling back to the default when
// the pointer dangles.
func (m *Manager[T]) Current() T {
	return m.Get(m.current)
}

// SetCurrent moves the selection pointer and persists.
func (m *Manager[T]) SetCurrent(ctx context.Context, id string) {
	m.current = id
	m.persist(ctx)
}

// Put replaces or inserts a preset under id and persists.
func (m *Manager[T]) Put(ctx context.Context, id string, preset T) {
	m.items[id] = preset
	m.persist(ctx)
}

// Delete removes a user preset. Deleting an unknown id or a built-in's id
// is a no-op at this layer; built-ins remain resolvable regardless. Callers
// are responsible for not deleting the active default out from under
// themselves.
func (m *Manager[T]) Delete(ctx context.Context, id string) {
	if _, ok := m.items[id]; !ok {
		return
	}
	delete(m.items, id)
	m.persist(ctx)
}

// Copy clones the current preset under a fresh id derived from name and a
// timestamp uniqueness token, selects the copy, persists, and returns the
// new id.
func (m *Manager[T]) Copy(ctx context.Context, name string) string {
	id := fmt.Sprintf("%s-%d", slug(name), time.Now().UnixMilli())
	m.items[id] = m.Current()
	m.current = id
	m.persist(ctx)
	return id
}

// IDs returns all resolvable preset ids (built-ins and user presets),
// sorted.
func (m *Manager[T]) IDs() []string {
	seen := make(map[string]bool, len(m.builtins)+len(m.items))
	ids := make([]string, 0, len(m.builtins)+len(m.items))
	for id := range m.builtins {
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	for id := range m.items {
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	sort.Strings(ids)
	return ids
}

// slug lowercases a display name into an id-safe token.
func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "preset"
	}
	return b.String()
}
