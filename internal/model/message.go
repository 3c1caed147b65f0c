// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// lorebooks, and the persisted storage state.
package model

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message. Exactly two participants exist
// in a conversation: the user and the bot.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the two known participants.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in a conversation.
//
// The Key is immutable after creation and unique within its conversation;
// it is allocated from the conversation's monotonic message counter.
type Message struct {
	// Identity
	Key  string `json:"key"`
	Role Role   `json:"role"`

	// Username is a display-name snapshot taken at creation time; renaming
	// a participant later does not rewrite history.
	Username string `json:"username"`

	// Content
	Text string `json:"text"`

	// TokenCount caches the estimated token cost of Text. nil means the
	// cache is cold; any mutation of Text must reset it to nil so a stale
	// count is never observed.
	TokenCount *int `json:"token_count"`

	// CompressedPrompt holds the codec-compressed snapshot of the exact
	// prompt that produced this message. Empty for user messages.
	CompressedPrompt string `json:"compressed_prompt,omitempty"`

	// Disabled excludes the message from future prompt assembly while
	// keeping it in the visible history.
	Disabled bool `json:"disabled,omitempty"`
}

// NewUserMessage creates a user message with the given key and text.
func NewUserMessage(key, username, text string) *Message {
	return &Message{
		Key:      key,
		Role:     RoleUser,
		Username: username,
		Text:     text,
	}
}

// NewBotMessage creates an empty bot message, the target of a streaming
// generation. Text is filled in as tokens arrive.
func NewBotMessage(key, botName string) *Message {
	return &Message{
		Key:      key,
		Role:     RoleBot,
		Username: botName,
	}
}

// SetText replaces the message body and invalidates the token count cache.
func (m *Message) SetText(text string) {
	m.Text = text
	m.TokenCount = nil
}

// AppendText appends a streamed chunk to the message body and invalidates
// the token count cache.
func (m *Message) AppendText(chunk string) {
	m.Text += chunk
	m.TokenCount = nil
}

// SetDisabled toggles exclusion from prompt assembly.
func (m *Message) SetDisabled(disabled bool) {
	m.Disabled = disabled
}

// CacheTokenCount stores an externally computed token estimate for the
// current Text.
func (m *Message) CacheTokenCount(n int) {
	m.TokenCount = &n
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	out := *m
	if m.TokenCount != nil {
		n := *m.TokenCount
		out.TokenCount = &n
	}
	return &out
}
