// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// lorebooks, and the persisted storage state.
package model

import "strconv"

// Default participant labels for a fresh conversation.
const (
	DefaultUsername    = "You"
	DefaultBotName     = "Bot"
	DefaultDisplayName = "New conversation"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat session: ordered message history,
// always-injected memory text, author's note, prompt format selection,
// and the ordered set of enabled lorebooks.
type Conversation struct {
	// Identity
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`

	// Participant display labels
	Username string `json:"username"`
	BotName  string `json:"bot_name"`

	// Messages in insertion order (= display order). Keys are unique.
	Messages []*Message `json:"messages"`

	// NextMessageID is the monotonic counter message keys are allocated
	// from. It only ever increases; deleted keys are never reused.
	NextMessageID int `json:"next_message_id"`

	// Context injected into every prompt
	Memory             string `json:"memory"`
	AuthorNote         string `json:"author_note"`
	AuthorNotePosition int    `json:"author_note_position"`

	// PromptFormat names the format preset used for prompt assembly.
	PromptFormat string `json:"prompt_format"`

	// LorebookIDs is the ordered list of enabled lorebooks. Order determines
	// injection precedence. Dangling references are tolerated and filtered
	// at read time.
	LorebookIDs []string `json:"lorebook_ids"`
}

// NewConversation creates an empty conversation with the given id and
// default labels.
func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:          id,
		DisplayName: DefaultDisplayName,
		Username:    DefaultUsername,
		BotName:     DefaultBotName,
		Messages:    make([]*Message, 0),
		LorebookIDs: make([]string, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// ConsumeMessageID returns the next message key and advances the counter.
// Exactly-once: every call yields a fresh, strictly larger id.
func (c *Conversation) ConsumeMessageID() string {
	id := c.NextMessageID
	c.NextMessageID++
	return strconv.Itoa(id)
}

// MessageByKey returns the message with the given key, or nil.
func (c *Conversation) MessageByKey(key string) *Message {
	for _, msg := range c.Messages {
		if msg.Key == key {
			return msg
		}
	}
	return nil
}

// UpsertMessage inserts the message if its key is unknown (appended at the
// end, preserving order of first appearance) or replaces the existing
// message in place, preserving its position. Returns true on insert.
func (c *Conversation) UpsertMessage(msg *Message) bool {
	for i, existing := range c.Messages {
		if existing.Key == msg.Key {
			c.Messages[i] = msg
			return false
		}
	}
	c.Messages = append(c.Messages, msg)
	return true
}

// RemoveMessage removes the message with the given key. Returns true if a
// message was removed, false if the key was not present.
func (c *Conversation) RemoveMessage(key string) bool {
	for i, msg := range c.Messages {
		if msg.Key == key {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// LastMessage returns the most recent message, or nil if the history is
// empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// EnabledMessages returns the history with disabled messages filtered out,
// in display order. The returned slice shares message pointers with the
// conversation.
func (c *Conversation) EnabledMessages() []*Message {
	out := make([]*Message, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if !msg.Disabled {
			out = append(out, msg)
		}
	}
	return out
}

// =============================================================================
// LOREBOOK REFERENCES
// =============================================================================

// HasLorebook reports whether the lorebook id is enabled on this
// conversation.
func (c *Conversation) HasLorebook(id string) bool {
	for _, existing := range c.LorebookIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// EnableLorebook appends the lorebook id to the conversation's ordered list.
// Duplicates are ignored.
func (c *Conversation) EnableLorebook(id string) {
	if c.HasLorebook(id) {
		return
	}
	c.LorebookIDs = append(c.LorebookIDs, id)
}

// DisableLorebook removes the lorebook id from the conversation. No-op if
// the id is not present.
func (c *Conversation) DisableLorebook(id string) {
	for i, existing := range c.LorebookIDs {
		if existing == id {
			c.LorebookIDs = append(c.LorebookIDs[:i], c.LorebookIDs[i+1:]...)
			return
		}
	}
}
