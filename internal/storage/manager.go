// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/store"
)

// ErrNotImplemented marks operations with no safe fallback; they fail
// loudly instead of degrading.
var ErrNotImplemented = errors.New("not implemented")

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the storage state, the loaded conversations and lorebooks,
// and the active conversation.
//
// Most access happens on the caller's goroutine; the internal mutex exists
// because the optional lorebook import watcher mutates from its own
// goroutine. Hooks are invoked with the mutex released so they may call
// back into the Manager.
type Manager struct {
	mu sync.Mutex

	kv    store.KV
	state *model.StorageState

	conversations map[string]*model.Conversation
	lorebooks     map[string]*model.Lorebook
	current       *model.Conversation

	// newID is the identity source for conversations and lorebooks;
	// replaceable in tests.
	newID func() string

	// Single-slot notification hooks. Last registration wins; nil disables.
	onConversationLoaded func()
	onLorebookUpdated    func()
	onRerender           func()
	onMessageDeleted     func(key string)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the identity source (default: random UUIDs).
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// NewManager creates a manager over an opened key-value store. Call Startup
// before use.
func NewManager(kv store.KV, opts ...Option) *Manager {
	m := &Manager{
		kv:            kv,
		state:         model.NewStorageState(),
		conversations: make(map[string]*model.Conversation),
		lorebooks:     make(map[string]*model.Lorebook),
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// =============================================================================
// CALLBACK REGISTRATION
// =============================================================================

// SetOnConversationLoaded registers the conversation-loaded hook.
func (m *Manager) SetOnConversationLoaded(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConversationLoaded = fn
}

// SetOnLorebookUpdated registers the lorebook-updated hook.
func (m *Manager) SetOnLorebookUpdated(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLorebookUpdated = fn
}

// SetOnRerender registers the rerender hook.
func (m *Manager) SetOnRerender(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRerender = fn
}

// SetOnMessageDeleted registers the message-deleted hook.
func (m *Manager) SetOnMessageDeleted(fn func(key string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessageDeleted = fn
}

// fire runs a hook snapshot taken under the lock. Call only after Unlock.
func fire(fn func()) {
	if fn != nil {
		fn()
	}
}

// =============================================================================
// STARTUP
// =============================================================================

// Startup loads the storage state and every indexed conversation and
// lorebook. Records that are absent or fail validation are logged and
// dropped. Loads are independent: each validated record overwrites
// deterministically regardless of arrival order, and only the record
// matching CurrentConversationID installs itself as active.
func (m *Manager) Startup(ctx context.Context) {
	m.mu.Lock()

	m.loadState(ctx)

	loadedCurrent := false
	for _, id := range m.state.ConversationIDs {
		if m.loadConversation(ctx, id) {
			loadedCurrent = true
		}
	}
	bookIDs := append([]string(nil), m.state.LorebookIDs...)
	m.mu.Unlock()

	// The lorebook-updated hook fires once per successful load, outside the
	// lock so a hook may call back into the manager.
	for _, id := range bookIDs {
		m.mu.Lock()
		loaded := m.loadLorebook(ctx, id)
		bookFn := m.onLorebookUpdated
		m.mu.Unlock()
		if loaded {
			fire(bookFn)
		}
	}

	m.mu.Lock()
	convFn := m.onConversationLoaded
	m.mu.Unlock()
	if loadedCurrent {
		fire(convFn)
	}
}

func (m *Manager) loadState(ctx context.Context) {
	data, found, err := m.kv.Get(ctx, store.KeyStorageState)
	if err != nil {
		log.Printf("storage: failed to read state, using defaults: %v", err)
		return
	}
	if !found {
		return
	}

	loaded := &model.StorageState{}
	if err := json.Unmarshal(data, loaded); err != nil {
		log.Printf("storage: dropping malformed state record: %v", err)
		return
	}
	if err := loaded.Validate(); err != nil {
		log.Printf("storage: dropping invalid state record: %v", err)
		return
	}
	loaded.Normalize()
	m.state = loaded
}

// loadConversation reports whether the loaded record became current.
func (m *Manager) loadConversation(ctx context.Context, id string) bool {
	data, found, err := m.kv.Get(ctx, store.ConversationKey(id))
	if err != nil || !found {
		if err != nil {
			log.Printf("storage: failed to read conversation %s: %v", id, err)
		}
		return false
	}

	conv := &model.Conversation{}
	if err := json.Unmarshal(data, conv); err != nil {
		log.Printf("storage: dropping malformed conversation %s: %v", id, err)
		return false
	}
	if err := conv.Validate(); err != nil {
		log.Printf("storage: dropping invalid conversation %s: %v", id, err)
		return false
	}
	conv.Normalize()

	m.conversations[conv.ID] = conv
	if conv.ID == m.state.CurrentConversationID {
		m.current = conv
		return true
	}
	return false
}

func (m *Manager) loadLorebook(ctx context.Context, id string) bool {
	data, found, err := m.kv.Get(ctx, store.LorebookKey(id))
	if err != nil || !found {
		if err != nil {
			log.Printf("storage: failed to read lorebook %s: %v", id, err)
		}
		return false
	}

	book := &model.Lorebook{}
	if err := json.Unmarshal(data, book); err != nil {
		log.Printf("storage: dropping malformed lorebook %s: %v", id, err)
		return false
	}
	if err := book.Validate(); err != nil {
		log.Printf("storage: dropping invalid lorebook %s: %v", id, err)
		return false
	}
	book.Normalize()

	m.lorebooks[book.ID] = book
	return true
}

// =============================================================================
// PERSISTENCE HELPERS
// =============================================================================

// persistState writes the storage state. Failure is logged; memory stays
// authoritative.
func (m *Manager) persistState(ctx context.Context) {
	data, err := json.Marshal(m.state)
	if err != nil {
		log.Printf("storage: failed to marshal state: %v", err)
		return
	}
	if err := m.kv.Put(ctx, store.KeyStorageState, data); err != nil {
		log.Printf("storage: failed to persist state: %v", err)
	}
}

// persistConversation writes one conversation record.
func (m *Manager) persistConversation(ctx context.Context, conv *model.Conversation) {
	data, err := json.Marshal(conv)
	if err != nil {
		log.Printf("storage: failed to marshal conversation %s: %v", conv.ID, err)
		return
	}
	if err := m.kv.Put(ctx, store.ConversationKey(conv.ID), data); err != nil {
		log.Printf("storage: failed to persist conversation %s: %v", conv.ID, err)
	}
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// Current returns the active conversation, or nil.
func (m *Manager) Current() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Conversation returns a loaded conversation by id, or nil.
func (m *Manager) Conversation(id string) *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversations[id]
}

// ConversationIDs returns the ids of every loaded conversation in index
// order.
func (m *Manager) ConversationIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.conversations))
	for _, id := range m.state.ConversationIDs {
		if _, ok := m.conversations[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// SetConversation switches the active conversation. No-op if id is not
// loaded in memory: switching never attempts a blind load from the store.
func (m *Manager) SetConversation(ctx context.Context, id string) {
	m.mu.Lock()
	conv, ok := m.conversations[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.current = conv
	m.state.CurrentConversationID = id
	m.persistState(ctx)
	fn := m.onConversationLoaded
	m.mu.Unlock()

	fire(fn)
}

// Save persists the current conversation (registering its id in the index
// if missing) and always re-persists the storage state.
func (m *Manager) Save(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveLocked(ctx)
}

func (m *Manager) saveLocked(ctx context.Context) {
	if m.state.CurrentConversationID != "" && m.current != nil {
		m.persistConversation(ctx, m.current)
		m.state.AddConversationID(m.state.CurrentConversationID)
	}
	m.persistState(ctx)
}

// NewConversation generates a fresh id, installs an empty conversation as
// current, persists it, and fires the conversation-loaded hook. A caller
// never observes the new id without its content already persisting.
func (m *Manager) NewConversation(ctx context.Context) *model.Conversation {
	m.mu.Lock()
	id := m.newID()
	conv := model.NewConversation(id)
	m.conversations[id] = conv
	m.current = conv
	m.state.CurrentConversationID = id
	m.saveLocked(ctx)
	fn := m.onConversationLoaded
	m.mu.Unlock()

	fire(fn)
	return conv
}

// DeleteConversation removes a conversation from memory, the index, and
// the store. No-op if the id is unknown. If the active conversation is
// deleted, no conversation remains active and the conversation-loaded hook
// fires so dependent state resets.
func (m *Manager) DeleteConversation(ctx context.Context, id string) {
	m.mu.Lock()
	if _, ok := m.conversations[id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.conversations, id)
	m.state.RemoveConversationID(id)

	wasCurrent := m.state.CurrentConversationID == id
	if wasCurrent {
		m.current = nil
		m.state.CurrentConversationID = ""
	}
	m.persistState(ctx)
	if err := m.kv.Delete(ctx, store.ConversationKey(id)); err != nil {
		log.Printf("storage: failed to delete conversation %s: %v", id, err)
	}
	fn := m.onConversationLoaded
	m.mu.Unlock()

	if wasCurrent {
		fire(fn)
	}
}

// CloneConversation is not implemented; no fallback is safe.
func (m *Manager) CloneConversation(context.Context, string) (string, error) {
	return "", ErrNotImplemented
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// ConsumeMessageID returns the current conversation's next message key and
// advances its counter. Returns "" when no conversation is active.
func (m *Manager) ConsumeMessageID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.ConsumeMessageID()
}

// UpdateMessage upserts a message into the current conversation by key:
// unknown keys append, known keys replace in place. The mutation is
// persisted immediately. The rerender hook fires only when rerender is
// true, so streaming callers can batch notification storms.
func (m *Manager) UpdateMessage(ctx context.Context, msg *model.Message, rerender bool) {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return
	}
	m.current.UpsertMessage(msg)
	m.persistConversation(ctx, m.current)
	fn := m.onRerender
	m.mu.Unlock()

	if rerender {
		fire(fn)
	}
}

// DeleteMessage removes the message with the given key from the current
// conversation (no-op if absent) and unconditionally fires the
// message-deleted hook with that key so dependent state reconciles.
func (m *Manager) DeleteMessage(ctx context.Context, key string) {
	m.mu.Lock()
	if m.current != nil && m.current.RemoveMessage(key) {
		m.persistConversation(ctx, m.current)
	}
	fn := m.onMessageDeleted
	m.mu.Unlock()

	if fn != nil {
		fn(key)
	}
}
