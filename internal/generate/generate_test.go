// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeranaias/loom-tui/internal/backend"
	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/settings"
	"github.com/jeranaias/loom-tui/internal/storage"
	"github.com/jeranaias/loom-tui/internal/store"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) (*Generator, *storage.Manager) {
	t.Helper()

	kv, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	mgr := storage.NewManager(kv)
	mgr.Startup(context.Background())
	mgr.NewConversation(context.Background())

	client := backend.NewClient(&backend.ClientConfig{
		Endpoint: server.URL + "/api/generate",
		Model:    "test-model",
	})
	return NewGenerator(mgr, client), mgr
}

func streamHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range chunks {
			fmt.Fprintln(w, `{"response":"`+c+`","done":false}`)
		}
		fmt.Fprintln(w, `{"response":"","done":true,"done_reason":"stop","prompt_eval_count":10,"eval_count":3}`)
	}
}

// =============================================================================
// SEND FLOW
// =============================================================================

func TestSendAppendsUserAndBotMessages(t *testing.T) {
	gen, mgr := newTestGenerator(t, streamHandler("Hello", " there"))

	format := settings.FormatSettings{Template: "{history}"}
	result, err := gen.Send(context.Background(), "hi", format, nil)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	conv := mgr.Current()
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want user + bot", len(conv.Messages))
	}
	if conv.Messages[0].Role != model.RoleUser || conv.Messages[0].Text != "hi" {
		t.Errorf("first message = %+v, want the user's text", conv.Messages[0])
	}
	if conv.Messages[1].Role != model.RoleBot || conv.Messages[1].Text != "Hello there" {
		t.Errorf("second message = %+v, want the streamed reply", conv.Messages[1])
	}
	if result.PromptTokens != 10 || result.CompletionTokens != 3 {
		t.Errorf("token counts = %d/%d, want 10/3", result.PromptTokens, result.CompletionTokens)
	}
	if result.Reply.TokenCount == nil || *result.Reply.TokenCount != 3 {
		t.Error("reply should cache the backend's eval count")
	}
}

func TestSendBatchesRerenders(t *testing.T) {
	chunks := make([]string, 40)
	for i := range chunks {
		chunks[i] = "x"
	}
	gen, mgr := newTestGenerator(t, streamHandler(chunks...))

	rerenders := 0
	mgr.SetOnRerender(func() { rerenders++ })

	format := settings.FormatSettings{Template: "{history}"}
	if _, err := gen.Send(context.Background(), "hi", format, nil); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	// One for the user message, one for the empty reply placeholder, one
	// for the terminal chunk. The 40 streamed chunks stay silent.
	if rerenders != 3 {
		t.Errorf("rerenders = %d, want 3", rerenders)
	}
}

func TestSendSnapshotsPrompt(t *testing.T) {
	gen, mgr := newTestGenerator(t, streamHandler("ok"))

	conv := mgr.Current()
	conv.Memory = "The year is 3024."

	format := settings.FormatSettings{
		Template: "{memory}\n{history}",
		User:     settings.RoleFormat{Prefix: "U: ", Suffix: "\n"},
	}
	result, err := gen.Send(context.Background(), "hi", format, nil)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if result.Reply.CompressedPrompt == "" {
		t.Fatal("reply should carry a compressed prompt snapshot")
	}
	snapshot, err := PromptSnapshot(result.Reply)
	if err != nil {
		t.Fatalf("PromptSnapshot error: %v", err)
	}
	want := "The year is 3024.\nU: hi\n"
	if snapshot != want {
		t.Errorf("snapshot = %q, want %q", snapshot, want)
	}
}

func TestSendWithoutConversation(t *testing.T) {
	gen, mgr := newTestGenerator(t, streamHandler("ok"))
	mgr.DeleteConversation(context.Background(), mgr.Current().ID)

	_, err := gen.Send(context.Background(), "hi", settings.FormatSettings{Template: "{history}"}, nil)
	if err != ErrNoConversation {
		t.Errorf("err = %v, want ErrNoConversation", err)
	}
}

// =============================================================================
// INTERRUPTION
// =============================================================================

func TestInterruptEndsTurnNormally(t *testing.T) {
	// The handler trips the flag between chunks. The second chunk is
	// written after the trip, so by the time the reader delivers it and
	// re-polls the flag the trip is visible; the done chunk never arrives.
	var gen *Generator
	var mgr *storage.Manager
	gen, mgr = newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"partial ","done":false}`)
		gen.Interrupt.Trip()
		fmt.Fprintln(w, `{"response":"reply","done":false}`)
	})

	format := settings.FormatSettings{Template: "{history}"}
	result, err := gen.Send(context.Background(), "hi", format, nil)
	if err != nil {
		t.Fatalf("interrupted Send returned error: %v", err)
	}
	if !result.Interrupted {
		t.Error("result should report interruption")
	}
	// Whatever text arrived before the trip is kept.
	if len(mgr.Current().Messages) != 2 {
		t.Errorf("messages = %d, want user + partial reply", len(mgr.Current().Messages))
	}
}

func TestRegenerateAddsOnlyBotMessage(t *testing.T) {
	gen, mgr := newTestGenerator(t, streamHandler("again"))

	format := settings.FormatSettings{Template: "{history}"}
	if _, err := gen.Send(context.Background(), "hi", format, nil); err != nil {
		t.Fatal(err)
	}
	before := len(mgr.Current().Messages)

	if _, err := gen.Regenerate(context.Background(), format, nil); err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}
	if got := len(mgr.Current().Messages); got != before+1 {
		t.Errorf("messages = %d, want %d (one new bot reply)", got, before+1)
	}
}
