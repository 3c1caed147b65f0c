// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_TokenCountInvalidation(t *testing.T) {
	msg := NewUserMessage("1", "You", "hello")
	msg.CacheTokenCount(42)
	if msg.TokenCount == nil || *msg.TokenCount != 42 {
		t.Fatalf("expected cached token count 42, got %v", msg.TokenCount)
	}

	msg.SetText("edited")
	if msg.TokenCount != nil {
		t.Errorf("SetText must null the token count, got %d", *msg.TokenCount)
	}

	msg.CacheTokenCount(7)
	msg.AppendText(" more")
	if msg.TokenCount != nil {
		t.Errorf("AppendText must null the token count, got %d", *msg.TokenCount)
	}
}

func TestMessage_Clone(t *testing.T) {
	msg := NewBotMessage("2", "Bot")
	msg.SetText("original")
	msg.CacheTokenCount(3)

	clone := msg.Clone()
	clone.SetText("changed")
	if msg.Text != "original" {
		t.Errorf("mutating clone changed original text")
	}
	if msg.TokenCount == nil {
		t.Errorf("mutating clone invalidated original token count")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_ConsumeMessageID(t *testing.T) {
	conv := NewConversation("c1")

	// Strictly increasing, never reused even across deletions.
	prev := -1
	for i := 0; i < 10; i++ {
		key := conv.ConsumeMessageID()
		n, err := strconv.Atoi(key)
		if err != nil {
			t.Fatalf("key %q is not numeric: %v", key, err)
		}
		if n <= prev {
			t.Fatalf("key %d not strictly greater than %d", n, prev)
		}
		prev = n

		conv.UpsertMessage(NewUserMessage(key, "You", "x"))
		if i%2 == 0 {
			conv.RemoveMessage(key)
		}
	}
	if conv.NextMessageID != 10 {
		t.Errorf("NextMessageID = %d, want 10", conv.NextMessageID)
	}
}

func TestConversation_NormalizeAdvancesLaggingCounter(t *testing.T) {
	conv := NewConversation("c1")
	conv.UpsertMessage(NewUserMessage("0", "You", "kept"))
	conv.UpsertMessage(NewUserMessage("7", "You", "also kept"))
	conv.NextMessageID = 0

	conv.Normalize()
	if conv.NextMessageID != 8 {
		t.Fatalf("NextMessageID = %d, want 8", conv.NextMessageID)
	}
	if key := conv.ConsumeMessageID(); key == "0" || key == "7" {
		t.Errorf("ConsumeMessageID re-issued stored key %q", key)
	}

	// Non-numeric keys (imported records) are ignored by the repair.
	conv2 := NewConversation("c2")
	conv2.UpsertMessage(NewUserMessage("legacy-a", "You", "x"))
	conv2.Normalize()
	if conv2.NextMessageID != 0 {
		t.Errorf("NextMessageID = %d, want 0", conv2.NextMessageID)
	}
}

func TestConversation_UpsertPreservesOrder(t *testing.T) {
	conv := NewConversation("c1")
	conv.UpsertMessage(NewUserMessage("1", "You", "first"))
	conv.UpsertMessage(NewUserMessage("2", "You", "second"))
	conv.UpsertMessage(NewUserMessage("3", "You", "third"))

	// Update in the middle: length unchanged, position preserved.
	updated := NewUserMessage("2", "You", "replaced")
	if inserted := conv.UpsertMessage(updated); inserted {
		t.Error("upsert of existing key reported insert")
	}
	if len(conv.Messages) != 3 {
		t.Fatalf("len = %d, want 3", len(conv.Messages))
	}
	if conv.Messages[1].Text != "replaced" {
		t.Errorf("Messages[1].Text = %q, want %q", conv.Messages[1].Text, "replaced")
	}
}

func TestConversation_EnabledMessages(t *testing.T) {
	conv := NewConversation("c1")
	conv.UpsertMessage(NewUserMessage("1", "You", "keep"))
	hidden := NewUserMessage("2", "You", "hide")
	hidden.SetDisabled(true)
	conv.UpsertMessage(hidden)
	conv.UpsertMessage(NewUserMessage("3", "You", "keep too"))

	enabled := conv.EnabledMessages()
	if len(enabled) != 2 {
		t.Fatalf("enabled count = %d, want 2", len(enabled))
	}
	if len(conv.Messages) != 3 {
		t.Errorf("disabled message must stay in history, len = %d", len(conv.Messages))
	}
}

func TestConversation_LorebookToggles(t *testing.T) {
	conv := NewConversation("c1")
	conv.EnableLorebook("a")
	conv.EnableLorebook("b")
	conv.EnableLorebook("a") // duplicate ignored
	if len(conv.LorebookIDs) != 2 {
		t.Fatalf("LorebookIDs = %v, want [a b]", conv.LorebookIDs)
	}
	conv.DisableLorebook("a")
	conv.DisableLorebook("missing") // no-op
	if len(conv.LorebookIDs) != 1 || conv.LorebookIDs[0] != "b" {
		t.Errorf("LorebookIDs = %v, want [b]", conv.LorebookIDs)
	}
}

// =============================================================================
// STORAGE STATE TESTS
// =============================================================================

func TestStorageState_ReorderLorebooks(t *testing.T) {
	s := NewStorageState()
	s.AddLorebookID("a")
	s.AddLorebookID("b")
	s.AddLorebookID("c")
	s.AddLorebookID("d")

	// Partial, stale order: unknown "x" dropped, missing "b"/"d" appended
	// in prior relative order.
	s.ReorderLorebooks([]string{"c", "x", "a", "c"})

	want := []string{"c", "a", "b", "d"}
	if len(s.LorebookIDs) != len(want) {
		t.Fatalf("LorebookIDs = %v, want %v", s.LorebookIDs, want)
	}
	for i := range want {
		if s.LorebookIDs[i] != want[i] {
			t.Errorf("LorebookIDs[%d] = %q, want %q", i, s.LorebookIDs[i], want[i])
		}
	}
}

func TestStorageState_AddNoDuplicates(t *testing.T) {
	s := NewStorageState()
	s.AddConversationID("c1")
	s.AddConversationID("c1")
	if len(s.ConversationIDs) != 1 {
		t.Errorf("ConversationIDs = %v, want single entry", s.ConversationIDs)
	}
	s.RemoveConversationID("missing") // no-op
	s.RemoveConversationID("c1")
	if len(s.ConversationIDs) != 0 {
		t.Errorf("ConversationIDs = %v, want empty", s.ConversationIDs)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_Conversation(t *testing.T) {
	conv := NewConversation("c1")
	conv.UpsertMessage(NewUserMessage("1", "You", "hi"))
	if err := conv.Validate(); err != nil {
		t.Fatalf("valid conversation rejected: %v", err)
	}

	conv.Messages = append(conv.Messages, NewUserMessage("1", "You", "dup"))
	if err := conv.Validate(); err == nil {
		t.Error("duplicate message key accepted")
	}

	empty := &Conversation{}
	if err := empty.Validate(); err == nil {
		t.Error("conversation without id accepted")
	}
}

func TestValidate_Message(t *testing.T) {
	bad := &Message{Key: "1", Role: "system"}
	if err := bad.Validate(); err == nil {
		t.Error("unknown role accepted")
	}
	if err := (&Message{Role: RoleUser}).Validate(); err == nil {
		t.Error("empty key accepted")
	}
}

func TestValidate_Lorebook(t *testing.T) {
	book := NewLorebook("l1", "Rules")
	book.UpsertEntry(NewLorebookEntry("e1", "Dragons"))
	if err := book.Validate(); err != nil {
		t.Fatalf("valid lorebook rejected: %v", err)
	}
	book.Entries = append(book.Entries, NewLorebookEntry("e1", "Dup"))
	if err := book.Validate(); err == nil {
		t.Error("duplicate entry id accepted")
	}
}

func TestValidate_State(t *testing.T) {
	s := NewStorageState()
	if err := s.Validate(); err != nil {
		t.Fatalf("default state rejected: %v", err)
	}
	s.MaxTokens = -2
	if err := s.Validate(); err == nil {
		t.Error("budget below -1 accepted")
	}
}

func TestNormalize_RepairsNilSlices(t *testing.T) {
	conv := &Conversation{ID: "c1"}
	conv.Normalize()
	if conv.Messages == nil || conv.LorebookIDs == nil {
		t.Error("Normalize left nil slices")
	}
	if conv.Username != DefaultUsername || conv.BotName != DefaultBotName {
		t.Error("Normalize did not fill default labels")
	}
}
