// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// lorebooks, and the persisted storage state.
package model

import (
	"errors"
	"fmt"
	"strconv"
)

// Validation errors. Callers loading from the persistent store treat any
// validation failure as "record absent": the record is logged and dropped,
// never fatal. This protects against store corruption and schema drift.
var (
	ErrInvalidConversation = errors.New("invalid conversation record")
	ErrInvalidMessage      = errors.New("invalid message record")
	ErrInvalidLorebook     = errors.New("invalid lorebook record")
	ErrInvalidEntry        = errors.New("invalid lorebook entry record")
	ErrInvalidState        = errors.New("invalid storage state record")
)

// =============================================================================
// SHAPE VALIDATION
// =============================================================================

// Validate checks that a deserialized message has the shape the engine
// relies on.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil", ErrInvalidMessage)
	}
	if m.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidMessage)
	}
	if !m.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, m.Role)
	}
	return nil
}

// Validate checks a deserialized conversation: identity present, message
// keys unique, counter non-negative. A counter lagging behind the stored
// keys is a repairable defect handled by Normalize, not a reason to drop
// the record.
func (c *Conversation) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil", ErrInvalidConversation)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidConversation)
	}
	if c.NextMessageID < 0 {
		return fmt.Errorf("%w: negative message counter", ErrInvalidConversation)
	}

	seen := make(map[string]bool, len(c.Messages))
	for _, msg := range c.Messages {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConversation, err)
		}
		if seen[msg.Key] {
			return fmt.Errorf("%w: duplicate message key %q", ErrInvalidConversation, msg.Key)
		}
		seen[msg.Key] = true
	}

	books := make(map[string]bool, len(c.LorebookIDs))
	for _, id := range c.LorebookIDs {
		if books[id] {
			return fmt.Errorf("%w: duplicate lorebook id %q", ErrInvalidConversation, id)
		}
		books[id] = true
	}
	return nil
}

// Validate checks a deserialized lorebook entry.
func (e *LorebookEntry) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil", ErrInvalidEntry)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEntry)
	}
	return nil
}

// Validate checks a deserialized lorebook: identity present, entry ids
// unique within the book.
func (l *Lorebook) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: nil", ErrInvalidLorebook)
	}
	if l.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidLorebook)
	}
	seen := make(map[string]bool, len(l.Entries))
	for _, e := range l.Entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLorebook, err)
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate entry id %q", ErrInvalidLorebook, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// Validate checks a deserialized storage state. Budgets below -1 have no
// defined meaning and mark the record corrupt.
func (s *StorageState) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil", ErrInvalidState)
	}
	if s.MaxInsertions < BudgetUnlimited {
		return fmt.Errorf("%w: insertion budget %d", ErrInvalidState, s.MaxInsertions)
	}
	if s.MaxTokens < BudgetUnlimited {
		return fmt.Errorf("%w: token budget %d", ErrInvalidState, s.MaxTokens)
	}
	seen := make(map[string]bool, len(s.ConversationIDs))
	for _, id := range s.ConversationIDs {
		if id == "" {
			return fmt.Errorf("%w: empty conversation id", ErrInvalidState)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate conversation id %q", ErrInvalidState, id)
		}
		seen[id] = true
	}
	return nil
}

// Normalize repairs nil slices left by partial JSON records so downstream
// code can range and append without nil checks, and advances the message
// counter past every numeric key already in the record so ConsumeMessageID
// never re-issues a key that would upsert over existing history.
func (c *Conversation) Normalize() {
	if c.Messages == nil {
		c.Messages = make([]*Message, 0)
	}
	if c.LorebookIDs == nil {
		c.LorebookIDs = make([]string, 0)
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	if c.BotName == "" {
		c.BotName = DefaultBotName
	}
	for _, msg := range c.Messages {
		if n, err := strconv.Atoi(msg.Key); err == nil && n >= c.NextMessageID {
			c.NextMessageID = n + 1
		}
	}
}

// Normalize repairs nil slices left by partial JSON records.
func (l *Lorebook) Normalize() {
	if l.Entries == nil {
		l.Entries = make([]*LorebookEntry, 0)
	}
	for _, e := range l.Entries {
		if e.Triggers == nil {
			e.Triggers = make([]string, 0)
		}
	}
}

// Normalize repairs nil slices left by partial JSON records.
func (s *StorageState) Normalize() {
	if s.ConversationIDs == nil {
		s.ConversationIDs = make([]string, 0)
	}
	if s.LorebookIDs == nil {
		s.LorebookIDs = make([]string, 0)
	}
}
