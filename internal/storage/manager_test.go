// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/store"
)

func newTestManager(t *testing.T) (*Manager, store.KV) {
	t.Helper()
	kv, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	n := 0
	mgr := NewManager(kv, WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	return mgr, kv
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

func TestNewConversationPersistsBeforeReturning(t *testing.T) {
	ctx := context.Background()
	mgr, kv := newTestManager(t)
	mgr.Startup(ctx)

	conv := mgr.NewConversation(ctx)
	require.NotNil(t, conv)

	_, found, err := kv.Get(ctx, store.ConversationKey(conv.ID))
	require.NoError(t, err)
	assert.True(t, found, "conversation record must exist before the id is observable")

	assert.Equal(t, conv.ID, mgr.Current().ID)
	assert.Contains(t, mgr.ConversationIDs(), conv.ID)
}

func TestSetConversationIgnoresUnknownID(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)

	fired := 0
	mgr.SetOnConversationLoaded(func() { fired++ })

	mgr.SetConversation(ctx, "no-such-id")
	assert.Equal(t, 0, fired)
	assert.Equal(t, conv.ID, mgr.Current().ID)

	mgr.SetConversation(ctx, conv.ID)
	assert.Equal(t, 1, fired)
}

func TestDeleteConversationClearsCurrent(t *testing.T) {
	ctx := context.Background()
	mgr, kv := newTestManager(t)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)

	fired := 0
	mgr.SetOnConversationLoaded(func() { fired++ })

	mgr.DeleteConversation(ctx, conv.ID)
	assert.Nil(t, mgr.Current())
	assert.Empty(t, mgr.ConversationIDs())
	assert.Equal(t, 1, fired, "deleting the active conversation resets dependents")

	_, found, err := kv.Get(ctx, store.ConversationKey(conv.ID))
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again is a no-op and fires nothing.
	mgr.DeleteConversation(ctx, conv.ID)
	assert.Equal(t, 1, fired)
}

func TestStartupRestoresCurrentConversation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := store.NewFileStore(dir)
	require.NoError(t, err)

	mgr := NewManager(kv)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)
	conv.DisplayName = "ghosts"
	mgr.UpdateMessage(ctx, model.NewUserMessage(mgr.ConsumeMessageID(), conv.Username, "hello"), true)
	mgr.Save(ctx)
	require.NoError(t, kv.Close())

	kv2, err := store.NewFileStore(dir)
	require.NoError(t, err)
	defer kv2.Close()

	loaded := false
	mgr2 := NewManager(kv2)
	mgr2.SetOnConversationLoaded(func() { loaded = true })
	mgr2.Startup(ctx)

	require.True(t, loaded)
	require.NotNil(t, mgr2.Current())
	assert.Equal(t, conv.ID, mgr2.Current().ID)
	assert.Equal(t, "ghosts", mgr2.Current().DisplayName)
	require.Len(t, mgr2.Current().Messages, 1)
	assert.Equal(t, "hello", mgr2.Current().Messages[0].Text)
}

func TestStartupDropsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := store.NewFileStore(dir)
	require.NoError(t, err)

	mgr := NewManager(kv)
	mgr.Startup(ctx)
	good := mgr.NewConversation(ctx)
	bad := mgr.NewConversation(ctx)
	mgr.Save(ctx)

	// Corrupt one record on disk.
	require.NoError(t, kv.Put(ctx, store.ConversationKey(bad.ID), []byte("{not json")))
	require.NoError(t, kv.Close())

	kv2, err := store.NewFileStore(dir)
	require.NoError(t, err)
	defer kv2.Close()

	mgr2 := NewManager(kv2)
	mgr2.Startup(ctx)

	assert.NotNil(t, mgr2.Conversation(good.ID))
	assert.Nil(t, mgr2.Conversation(bad.ID), "corrupt record behaves as absent")
}

func TestStartupRepairsLaggingMessageCounter(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := store.NewFileStore(dir)
	require.NoError(t, err)

	mgr := NewManager(kv)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)
	mgr.UpdateMessage(ctx, model.NewUserMessage(mgr.ConsumeMessageID(), conv.Username, "original"), true)
	mgr.Save(ctx)

	// Rewind the persisted counter behind the stored key.
	data, found, err := kv.Get(ctx, store.ConversationKey(conv.ID))
	require.NoError(t, err)
	require.True(t, found)
	var rec model.Conversation
	require.NoError(t, json.Unmarshal(data, &rec))
	rec.NextMessageID = 0
	data, err = json.Marshal(&rec)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, store.ConversationKey(conv.ID), data))
	require.NoError(t, kv.Close())

	kv2, err := store.NewFileStore(dir)
	require.NoError(t, err)
	defer kv2.Close()

	mgr2 := NewManager(kv2)
	mgr2.Startup(ctx)
	require.NotNil(t, mgr2.Current())
	require.Len(t, mgr2.Current().Messages, 1)

	// The repaired counter never re-issues the stored key, so appending
	// extends history instead of replacing it.
	key := mgr2.ConsumeMessageID()
	assert.NotEqual(t, mgr2.Current().Messages[0].Key, key)
	mgr2.UpdateMessage(ctx, model.NewUserMessage(key, "You", "appended"), true)
	assert.Len(t, mgr2.Current().Messages, 2)
	assert.Equal(t, "original", mgr2.Current().Messages[0].Text)
}

func TestStartupFiresLorebookHookPerLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := store.NewFileStore(dir)
	require.NoError(t, err)

	mgr := NewManager(kv)
	mgr.Startup(ctx)
	mgr.CreateLorebook(ctx, "a")
	mgr.CreateLorebook(ctx, "b")
	require.NoError(t, kv.Close())

	kv2, err := store.NewFileStore(dir)
	require.NoError(t, err)
	defer kv2.Close()

	mgr2 := NewManager(kv2)
	var visible []int
	mgr2.SetOnLorebookUpdated(func() {
		visible = append(visible, len(mgr2.LorebookIDs()))
	})
	mgr2.Startup(ctx)

	// One notification per loaded book, fired as each load lands.
	assert.Equal(t, []int{1, 2}, visible)
}

func TestCloneOperationsNotImplemented(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)

	_, err := mgr.CloneConversation(ctx, "x")
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = mgr.CloneLorebook(ctx, "x")
	assert.ErrorIs(t, err, ErrNotImplemented)
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

func TestConsumeMessageIDNeverReuses(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)
	mgr.NewConversation(ctx)

	k1 := mgr.ConsumeMessageID()
	k2 := mgr.ConsumeMessageID()
	assert.NotEqual(t, k1, k2)

	// Deleting the message does not free its key.
	mgr.UpdateMessage(ctx, model.NewUserMessage(k1, "You", "hi"), true)
	mgr.DeleteMessage(ctx, k1)
	k3 := mgr.ConsumeMessageID()
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k2, k3)
}

func TestUpdateMessageUpsertSemantics(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)

	key := mgr.ConsumeMessageID()
	msg := model.NewUserMessage(key, conv.Username, "first")
	mgr.UpdateMessage(ctx, msg, true)
	require.Len(t, conv.Messages, 1)

	// Same key replaces in place, no duplicate, no error.
	msg2 := model.NewUserMessage(key, conv.Username, "second")
	mgr.UpdateMessage(ctx, msg2, true)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "second", conv.Messages[0].Text)
}

func TestUpdateMessageRerenderFlagBatchesNotifications(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)
	mgr.NewConversation(ctx)

	rerenders := 0
	mgr.SetOnRerender(func() { rerenders++ })

	key := mgr.ConsumeMessageID()
	msg := model.NewBotMessage(key, "Bot")
	mgr.UpdateMessage(ctx, msg, true)

	// A streaming burst: many silent updates, one final visible one.
	for i := 0; i < 50; i++ {
		msg.AppendText("token ")
		mgr.UpdateMessage(ctx, msg, false)
	}
	mgr.UpdateMessage(ctx, msg, true)

	assert.Equal(t, 2, rerenders)
}

func TestDeleteMessageAlwaysNotifies(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)

	var deleted []string
	mgr.SetOnMessageDeleted(func(key string) { deleted = append(deleted, key) })

	key := mgr.ConsumeMessageID()
	mgr.UpdateMessage(ctx, model.NewUserMessage(key, conv.Username, "hi"), true)

	mgr.DeleteMessage(ctx, key)
	mgr.DeleteMessage(ctx, "never-existed")

	// The hook fires for absent keys too so dependents can reconcile.
	assert.Equal(t, []string{key, "never-existed"}, deleted)
	assert.Empty(t, conv.Messages)
}

func TestCallbackLastRegistrationWins(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)

	first, second := 0, 0
	mgr.SetOnConversationLoaded(func() { first++ })
	mgr.SetOnConversationLoaded(func() { second++ })
	mgr.NewConversation(ctx)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	// Nil disables.
	mgr.SetOnConversationLoaded(nil)
	mgr.NewConversation(ctx)
	assert.Equal(t, 1, second)
}

// =============================================================================
// LOREBOOKS
// =============================================================================

func TestLorebookLifecycle(t *testing.T) {
	ctx := context.Background()
	mgr, kv := newTestManager(t)
	mgr.Startup(ctx)

	updates := 0
	mgr.SetOnLorebookUpdated(func() { updates++ })

	id := mgr.CreateLorebook(ctx, "world")
	require.NotEmpty(t, id)
	assert.Equal(t, 1, updates)

	book := mgr.Lorebook(id)
	require.NotNil(t, book)
	assert.Equal(t, "world", book.Name)

	_, found, err := kv.Get(ctx, store.LorebookKey(id))
	require.NoError(t, err)
	assert.True(t, found)

	book.UpsertEntry(model.NewLorebookEntry("e1", "dragons"))
	mgr.UpdateLorebook(ctx, id)
	assert.Equal(t, 2, updates)

	mgr.DeleteLorebook(ctx, id)
	assert.Nil(t, mgr.Lorebook(id))
	assert.Equal(t, 3, updates)

	// Deleting an unknown id never fails, and still notifies.
	mgr.DeleteLorebook(ctx, "no-such-book")
	assert.Equal(t, 4, updates)
}

func TestUpdateLorebookOrder(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)

	a := mgr.CreateLorebook(ctx, "a")
	b := mgr.CreateLorebook(ctx, "b")
	c := mgr.CreateLorebook(ctx, "c")

	mgr.UpdateLorebookOrder(ctx, []string{c, a, "phantom"})
	assert.Equal(t, []string{c, a, b}, mgr.LorebookIDs())
}

func TestEnabledLorebooksSkipsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)

	a := mgr.CreateLorebook(ctx, "a")
	b := mgr.CreateLorebook(ctx, "b")
	conv.EnableLorebook(a)
	conv.EnableLorebook(b)
	conv.EnableLorebook("deleted-long-ago")

	books := mgr.EnabledLorebooks(conv)
	require.Len(t, books, 2)
	assert.Equal(t, "a", books[0].Name)
	assert.Equal(t, "b", books[1].Name)

	mgr.DeleteLorebook(ctx, a)
	books = mgr.EnabledLorebooks(conv)
	require.Len(t, books, 1)
	assert.Equal(t, "b", books[0].Name)
}

func TestEnabledLorebooksKeepConversationOrder(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)

	a := mgr.CreateLorebook(ctx, "a")
	b := mgr.CreateLorebook(ctx, "b")

	// The conversation's own enable order is the injection precedence,
	// even when the global display order disagrees.
	mgr.UpdateLorebookOrder(ctx, []string{b, a})
	conv.EnableLorebook(a)
	conv.EnableLorebook(b)

	books := mgr.EnabledLorebooks(conv)
	require.Len(t, books, 2)
	assert.Equal(t, "a", books[0].Name)
	assert.Equal(t, "b", books[1].Name)
}

func TestUpdateLorebookContentsReplacesAndNotifies(t *testing.T) {
	ctx := context.Background()
	mgr, kv := newTestManager(t)
	mgr.Startup(ctx)
	id := mgr.CreateLorebook(ctx, "world")

	updates := 0
	mgr.SetOnLorebookUpdated(func() { updates++ })

	entries := []*model.LorebookEntry{model.NewLorebookEntry("e1", "dragons")}
	require.True(t, mgr.UpdateLorebookContents(ctx, id, "renamed", entries))
	assert.Equal(t, 1, updates)

	book := mgr.Lorebook(id)
	require.NotNil(t, book)
	assert.Equal(t, "renamed", book.Name)
	require.Len(t, book.Entries, 1)

	_, found, err := kv.Get(ctx, store.LorebookKey(id))
	require.NoError(t, err)
	assert.True(t, found)

	assert.False(t, mgr.UpdateLorebookContents(ctx, "no-such-book", "x", nil))
	assert.Equal(t, 1, updates)
}

func TestUpdateLorebookContentsLeavesReadersStable(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)
	conv := mgr.NewConversation(ctx)
	id := mgr.CreateLorebook(ctx, "world")
	conv.EnableLorebook(id)

	before := mgr.EnabledLorebooks(conv)
	require.Len(t, before, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			entries := []*model.LorebookEntry{
				model.NewLorebookEntry("e1", fmt.Sprintf("rev-%d", i)),
			}
			mgr.UpdateLorebookContents(ctx, id, "world", entries)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			for _, book := range mgr.EnabledLorebooks(conv) {
				_ = book.Name
				for _, e := range book.Entries {
					_ = e.Name
				}
			}
		}
	}()
	wg.Wait()

	// The snapshot taken before the updates is untouched.
	assert.Equal(t, "world", before[0].Name)
	assert.Empty(t, before[0].Entries)
}

func TestBudgetAccessors(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)

	assert.Equal(t, model.DefaultMaxInsertions, mgr.MaxInsertions())
	assert.Equal(t, model.DefaultMaxTokens, mgr.MaxTokens())

	mgr.SetMaxInsertions(ctx, model.BudgetDisabled)
	mgr.SetMaxTokens(ctx, model.BudgetUnlimited)
	assert.Equal(t, model.BudgetDisabled, mgr.MaxInsertions())
	assert.Equal(t, model.BudgetUnlimited, mgr.MaxTokens())

	// Below -1 has no meaning and is rejected.
	mgr.SetMaxTokens(ctx, -5)
	assert.Equal(t, model.BudgetUnlimited, mgr.MaxTokens())
}

func TestBudgetsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := store.NewFileStore(dir)
	require.NoError(t, err)

	mgr := NewManager(kv)
	mgr.Startup(ctx)
	mgr.SetMaxInsertions(ctx, 3)
	mgr.SetMaxTokens(ctx, 512)
	require.NoError(t, kv.Close())

	kv2, err := store.NewFileStore(dir)
	require.NoError(t, err)
	defer kv2.Close()

	mgr2 := NewManager(kv2)
	mgr2.Startup(ctx)
	assert.Equal(t, 3, mgr2.MaxInsertions())
	assert.Equal(t, 512, mgr2.MaxTokens())
}
