// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// lorebooks, and the persisted storage state.
package model

// Budget sentinel values shared by MaxInsertions and MaxTokens.
const (
	// BudgetDisabled turns the lorebook feature off entirely.
	BudgetDisabled = 0
	// BudgetUnlimited imposes no cap.
	BudgetUnlimited = -1
)

// Default lorebook budgets for a fresh state.
const (
	DefaultMaxInsertions = 10
	DefaultMaxTokens     = 1000
)

// =============================================================================
// STORAGE STATE
// =============================================================================

// StorageState is the process-wide index of everything persisted: which
// conversations and lorebooks to load at startup, which conversation is
// active, and the global lorebook budgets.
//
// Exactly one instance exists per process. It is created with defaults,
// overwritten by a valid persisted record at startup, and re-persisted on
// every state-affecting operation.
type StorageState struct {
	// CurrentConversationID references the active conversation. Empty means
	// no conversation is active.
	CurrentConversationID string `json:"current_conversation_id"`

	// ConversationIDs defines what to load at startup. Treated as a set.
	ConversationIDs []string `json:"conversation_ids"`

	// LorebookIDs is ordered: it is the cross-conversation default
	// precedence for lorebook injection.
	LorebookIDs []string `json:"lorebook_ids"`

	// MaxInsertions caps how many lorebook entries may be active at once.
	// 0 disables the lorebook feature, -1 means uncapped.
	MaxInsertions int `json:"lorebook_max_insertion_count"`

	// MaxTokens is the global token budget for active entries. Same 0/-1
	// semantics as MaxInsertions.
	MaxTokens int `json:"lorebook_max_tokens"`
}

// NewStorageState returns a state with defaults: nothing loaded, budgets at
// their default caps.
func NewStorageState() *StorageState {
	return &StorageState{
		ConversationIDs: make([]string, 0),
		LorebookIDs:     make([]string, 0),
		MaxInsertions:   DefaultMaxInsertions,
		MaxTokens:       DefaultMaxTokens,
	}
}

// =============================================================================
// ID LIST MANAGEMENT
// =============================================================================

// AddConversationID records a conversation id for startup loading. Never
// duplicates.
func (s *StorageState) AddConversationID(id string) {
	for _, existing := range s.ConversationIDs {
		if existing == id {
			return
		}
	}
	s.ConversationIDs = append(s.ConversationIDs, id)
}

// RemoveConversationID drops a conversation id from the index. No-op if
// absent.
func (s *StorageState) RemoveConversationID(id string) {
	for i, existing := range s.ConversationIDs {
		if existing == id {
			s.ConversationIDs = append(s.ConversationIDs[:i], s.ConversationIDs[i+1:]...)
			return
		}
	}
}

// AddLorebookID appends a lorebook id to the ordered list. Never duplicates.
func (s *StorageState) AddLorebookID(id string) {
	for _, existing := range s.LorebookIDs {
		if existing == id {
			return
		}
	}
	s.LorebookIDs = append(s.LorebookIDs, id)
}

// RemoveLorebookID drops a lorebook id from the ordered list. No-op if
// absent.
func (s *StorageState) RemoveLorebookID(id string) {
	for i, existing := range s.LorebookIDs {
		if existing == id {
			s.LorebookIDs = append(s.LorebookIDs[:i], s.LorebookIDs[i+1:]...)
			return
		}
	}
}

// ReorderLorebooks re-sequences the lorebook id list. Every id in newOrder
// that is currently known is kept in the given order (duplicates collapsed);
// known ids missing from newOrder are appended afterward in their prior
// relative order. A stale or partial caller list therefore never loses ids.
func (s *StorageState) ReorderLorebooks(newOrder []string) {
	known := make(map[string]bool, len(s.LorebookIDs))
	for _, id := range s.LorebookIDs {
		known[id] = true
	}

	result := make([]string, 0, len(s.LorebookIDs))
	seen := make(map[string]bool, len(newOrder))
	for _, id := range newOrder {
		if known[id] && !seen[id] {
			result = append(result, id)
			seen[id] = true
		}
	}
	for _, id := range s.LorebookIDs {
		if !seen[id] {
			result = append(result, id)
			seen[id] = true
		}
	}
	s.LorebookIDs = result
}
