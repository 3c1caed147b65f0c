// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generate drives one turn of streaming generation: it assembles
// the prompt, posts it to the backend, and folds the streamed tokens into
// the storage manager.
package generate

import (
	"context"
	"errors"
	"log"

	"github.com/jeranaias/loom-tui/internal/backend"
	"github.com/jeranaias/loom-tui/internal/codec"
	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/prompt"
	"github.com/jeranaias/loom-tui/internal/settings"
	"github.com/jeranaias/loom-tui/internal/storage"
)

// ErrNoConversation is returned when generation is requested with no
// active conversation.
var ErrNoConversation = errors.New("no active conversation")

// =============================================================================
// GENERATOR
// =============================================================================

// Generator wires the storage manager, prompt assembly, and the backend
// client into the send-message flow.
type Generator struct {
	mgr       *storage.Manager
	client    *backend.Client
	estimator prompt.Estimator

	// Interrupt is polled between stream chunks; trip it to stop the
	// in-flight generation at the next boundary.
	Interrupt backend.Interrupt

	// ScanMessages overrides the lorebook trigger scan window; 0 uses the
	// default.
	ScanMessages int

	// OnToken, when set, receives each streamed text fragment as it
	// arrives. Display-only; persistence goes through the manager.
	OnToken func(token string)
}

// NewGenerator creates a generator over an initialized storage manager.
func NewGenerator(mgr *storage.Manager, client *backend.Client) *Generator {
	return &Generator{
		mgr:       mgr,
		client:    client,
		estimator: prompt.HeuristicEstimator{},
	}
}

// SetClient swaps the backend client, for connection preset changes made
// mid-session. Not safe to call while a generation is in flight.
func (g *Generator) SetClient(client *backend.Client) {
	g.client = client
}

// Client returns the backend client currently in use.
func (g *Generator) Client() *backend.Client {
	return g.client
}

// Result summarizes one completed generation turn.
type Result struct {
	// Reply is the bot message the stream was folded into.
	Reply *model.Message

	// Interrupted is true when the turn ended because the interrupt flag
	// tripped rather than the backend finishing.
	Interrupted bool

	// PromptTokens and CompletionTokens come from the backend's terminal
	// chunk when it reports them.
	PromptTokens     int
	CompletionTokens int
}

// Send runs one full turn: append the user's text as a message, assemble
// the prompt, stream the reply into a fresh bot message, and persist
// everything through the storage manager.
//
// During streaming each appended chunk is persisted with the rerender
// notification suppressed; a single rerender fires on the terminal chunk.
// Interruption ends the turn normally with whatever text arrived.
func (g *Generator) Send(ctx context.Context, userText string, format settings.FormatSettings, sampling *settings.SamplingSettings) (*Result, error) {
	conv := g.mgr.Current()
	if conv == nil {
		return nil, ErrNoConversation
	}

	g.Interrupt.Clear()

	userMsg := model.NewUserMessage(g.mgr.ConsumeMessageID(), conv.Username, userText)
	userMsg.CacheTokenCount(g.estimator.Estimate(userText))
	g.mgr.UpdateMessage(ctx, userMsg, true)

	return g.generateReply(ctx, conv, format, sampling)
}

// Regenerate re-runs generation for the current history without adding a
// user message: the prompt is assembled from what stands and a fresh bot
// message receives the stream.
func (g *Generator) Regenerate(ctx context.Context, format settings.FormatSettings, sampling *settings.SamplingSettings) (*Result, error) {
	conv := g.mgr.Current()
	if conv == nil {
		return nil, ErrNoConversation
	}

	g.Interrupt.Clear()
	return g.generateReply(ctx, conv, format, sampling)
}

func (g *Generator) generateReply(ctx context.Context, conv *model.Conversation, format settings.FormatSettings, sampling *settings.SamplingSettings) (*Result, error) {
	assembled := prompt.Build(prompt.Input{
		Conversation:  conv,
		Books:         g.mgr.EnabledLorebooks(conv),
		Format:        format,
		MaxInsertions: g.mgr.MaxInsertions(),
		MaxTokens:     g.mgr.MaxTokens(),
		ScanMessages:  g.ScanMessages,
	}, g.estimator)

	reply := model.NewBotMessage(g.mgr.ConsumeMessageID(), conv.BotName)

	// Snapshot the exact prompt onto the reply for later inspection. A
	// codec failure loses the snapshot, never the turn.
	if compressed, err := codec.Compress(assembled); err == nil {
		reply.CompressedPrompt = compressed
	} else {
		log.Printf("generate: failed to compress prompt snapshot: %v", err)
	}

	g.mgr.UpdateMessage(ctx, reply, true)

	result := &Result{Reply: reply}
	err := g.client.Generate(ctx, assembled, backend.OptionsFromSampling(sampling), &g.Interrupt, func(chunk backend.StreamChunk) {
		if chunk.Response != "" {
			reply.AppendText(chunk.Response)
			if g.OnToken != nil {
				g.OnToken(chunk.Response)
			}
		}
		if !chunk.Done {
			g.mgr.UpdateMessage(ctx, reply, false)
			return
		}

		result.Interrupted = chunk.Interrupted
		result.PromptTokens = chunk.PromptEvalCount
		result.CompletionTokens = chunk.EvalCount

		if chunk.EvalCount > 0 {
			reply.CacheTokenCount(chunk.EvalCount)
		} else {
			reply.CacheTokenCount(g.estimator.Estimate(reply.Text))
		}
		g.mgr.UpdateMessage(ctx, reply, true)
	})
	if err != nil {
		// The partial reply stays in history; surface it with the error.
		g.mgr.UpdateMessage(ctx, reply, true)
		return result, err
	}

	g.mgr.Save(ctx)
	return result, nil
}

// PromptSnapshot decompresses the stored prompt snapshot of a message.
func PromptSnapshot(msg *model.Message) (string, error) {
	return codec.Decompress(msg.CompressedPrompt)
}
