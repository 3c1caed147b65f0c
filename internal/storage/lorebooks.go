// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/store"
)

// =============================================================================
// LOREBOOK LIFECYCLE
// =============================================================================

// Lorebook returns a loaded lorebook by id, or nil.
func (m *Manager) Lorebook(id string) *model.Lorebook {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lorebooks[id]
}

// LorebookIDs returns the ids of every loaded lorebook in global order.
func (m *Manager) LorebookIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.lorebooks))
	for _, id := range m.state.LorebookIDs {
		if _, ok := m.lorebooks[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CreateLorebook generates a fresh id, registers an empty lorebook under
// it, persists both the record and the index, and fires the
// lorebook-updated hook. Returns the new id.
func (m *Manager) CreateLorebook(ctx context.Context, name string) string {
	m.mu.Lock()
	id := m.newID()
	book := model.NewLorebook(id, name)
	m.lorebooks[id] = book
	m.state.AddLorebookID(id)
	m.persistLorebook(ctx, book)
	m.persistState(ctx)
	fn := m.onLorebookUpdated
	m.mu.Unlock()

	fire(fn)
	return id
}

// ImportLorebook registers an already-built lorebook, assigning it a fresh
// id. Invalid books are rejected with the validation error.
func (m *Manager) ImportLorebook(ctx context.Context, book *model.Lorebook) (string, error) {
	m.mu.Lock()
	book.ID = m.newID()
	if err := book.Validate(); err != nil {
		m.mu.Unlock()
		return "", err
	}
	book.Normalize()
	m.lorebooks[book.ID] = book
	m.state.AddLorebookID(book.ID)
	m.persistLorebook(ctx, book)
	m.persistState(ctx)
	fn := m.onLorebookUpdated
	m.mu.Unlock()

	fire(fn)
	return book.ID, nil
}

// UpdateLorebook persists a mutated lorebook and fires the
// lorebook-updated hook. No-op if the id is not loaded.
func (m *Manager) UpdateLorebook(ctx context.Context, id string) {
	m.mu.Lock()
	book, ok := m.lorebooks[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.persistLorebook(ctx, book)
	fn := m.onLorebookUpdated
	m.mu.Unlock()

	fire(fn)
}

// UpdateLorebookContents replaces a loaded lorebook's name and entries,
// persists it, and fires the lorebook-updated hook. Returns false if the
// id is not loaded. The loaded book is replaced wholesale rather than
// mutated in place, so callers holding pointers from an earlier
// EnabledLorebooks call keep reading a stable snapshot.
func (m *Manager) UpdateLorebookContents(ctx context.Context, id, name string, entries []*model.LorebookEntry) bool {
	m.mu.Lock()
	if _, ok := m.lorebooks[id]; !ok {
		m.mu.Unlock()
		return false
	}
	book := &model.Lorebook{ID: id, Name: name, Entries: entries}
	book.Normalize()
	m.lorebooks[id] = book
	m.persistLorebook(ctx, book)
	fn := m.onLorebookUpdated
	m.mu.Unlock()

	fire(fn)
	return true
}

// DeleteLorebook removes a lorebook from memory, the global order, and the
// store. Deleting an unknown id never fails; the hook still fires so
// dependents reconcile. Conversations keep any dangling reference; readers
// filter those out.
func (m *Manager) DeleteLorebook(ctx context.Context, id string) {
	m.mu.Lock()
	delete(m.lorebooks, id)
	m.state.RemoveLorebookID(id)
	m.persistState(ctx)
	if err := m.kv.Delete(ctx, store.LorebookKey(id)); err != nil {
		log.Printf("storage: failed to delete lorebook %s: %v", id, err)
	}
	fn := m.onLorebookUpdated
	m.mu.Unlock()

	fire(fn)
}

// UpdateLorebookOrder rewrites the global lorebook order. Unknown ids in
// the new order are ignored; known ids it omits keep their prior relative
// order at the tail.
func (m *Manager) UpdateLorebookOrder(ctx context.Context, order []string) {
	m.mu.Lock()
	m.state.ReorderLorebooks(order)
	m.persistState(ctx)
	fn := m.onLorebookUpdated
	m.mu.Unlock()

	fire(fn)
}

// EnabledLorebooks resolves a conversation's enabled lorebook references
// against the loaded set, silently skipping dangling ids. The
// conversation's own list order is kept: it is the injection precedence,
// so when a budget truncates, the earliest conversation entries win.
func (m *Manager) EnabledLorebooks(conv *model.Conversation) []*model.Lorebook {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv == nil {
		return nil
	}
	books := make([]*model.Lorebook, 0, len(conv.LorebookIDs))
	for _, id := range conv.LorebookIDs {
		if book, ok := m.lorebooks[id]; ok {
			books = append(books, book)
		}
	}
	return books
}

// CloneLorebook is not implemented; no fallback is safe.
func (m *Manager) CloneLorebook(context.Context, string) (string, error) {
	return "", ErrNotImplemented
}

// =============================================================================
// ACTIVATION BUDGETS
// =============================================================================

// MaxInsertions returns the global lorebook insertion cap.
func (m *Manager) MaxInsertions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.MaxInsertions
}

// SetMaxInsertions updates the insertion cap, persists, and fires the
// lorebook-updated hook. Values below -1 are rejected silently.
func (m *Manager) SetMaxInsertions(ctx context.Context, n int) {
	if n < model.BudgetUnlimited {
		return
	}
	m.mu.Lock()
	m.state.MaxInsertions = n
	m.persistState(ctx)
	fn := m.onLorebookUpdated
	m.mu.Unlock()

	fire(fn)
}

// MaxTokens returns the global lorebook token budget.
func (m *Manager) MaxTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.MaxTokens
}

// SetMaxTokens updates the token budget, persists, and fires the
// lorebook-updated hook. Values below -1 are rejected silently.
func (m *Manager) SetMaxTokens(ctx context.Context, n int) {
	if n < model.BudgetUnlimited {
		return
	}
	m.mu.Lock()
	m.state.MaxTokens = n
	m.persistState(ctx)
	fn := m.onLorebookUpdated
	m.mu.Unlock()

	fire(fn)
}

// persistLorebook writes one lorebook record.
func (m *Manager) persistLorebook(ctx context.Context, book *model.Lorebook) {
	data, err := json.Marshal(book)
	if err != nil {
		log.Printf("storage: failed to marshal lorebook %s: %v", book.ID, err)
		return
	}
	if err := m.kv.Put(ctx, store.LorebookKey(book.ID), data); err != nil {
		log.Printf("storage: failed to persist lorebook %s: %v", book.ID, err)
	}
}
