// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// lorebooks, and the persisted storage state.
package model

// =============================================================================
// LOREBOOK ENTRY
// =============================================================================

// LorebookEntry is one trigger→text injection rule.
type LorebookEntry struct {
	ID   string `json:"entry_id"`
	Name string `json:"entry_name"`

	// Triggers are phrases matched (case-insensitively) against recent
	// conversation text to decide activation.
	Triggers []string `json:"triggers"`

	// Body is the text injected into the prompt when the entry activates.
	Body string `json:"body"`

	// Enabled gates activation; a disabled entry never activates regardless
	// of trigger matches.
	Enabled bool `json:"enabled"`
}

// NewLorebookEntry creates an enabled entry with no triggers.
func NewLorebookEntry(id, name string) *LorebookEntry {
	return &LorebookEntry{
		ID:       id,
		Name:     name,
		Triggers: make([]string, 0),
		Enabled:  true,
	}
}

// =============================================================================
// LOREBOOK
// =============================================================================

// Lorebook is a named collection of entries. Entry order is significant:
// it is the default precedence when the insertion budget truncates the
// active set.
type Lorebook struct {
	ID      string           `json:"lorebook_id"`
	Name    string           `json:"lorebook_name"`
	Entries []*LorebookEntry `json:"entries"`
}

// NewLorebook creates an empty lorebook.
func NewLorebook(id, name string) *Lorebook {
	return &Lorebook{
		ID:      id,
		Name:    name,
		Entries: make([]*LorebookEntry, 0),
	}
}

// EntryByID returns the entry with the given id, or nil.
func (l *Lorebook) EntryByID(id string) *LorebookEntry {
	for _, e := range l.Entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// UpsertEntry inserts the entry if its id is unknown or replaces the
// existing entry in place, preserving its position. Returns true on insert.
func (l *Lorebook) UpsertEntry(entry *LorebookEntry) bool {
	for i, existing := range l.Entries {
		if existing.ID == entry.ID {
			l.Entries[i] = entry
			return false
		}
	}
	l.Entries = append(l.Entries, entry)
	return true
}

// RemoveEntry removes the entry with the given id. Returns true if an entry
// was removed.
func (l *Lorebook) RemoveEntry(id string) bool {
	for i, e := range l.Entries {
		if e.ID == id {
			l.Entries = append(l.Entries[:i], l.Entries[i+1:]...)
			return true
		}
	}
	return false
}
