// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"sync/atomic"

	"github.com/jeranaias/loom-tui/internal/settings"
)

// =============================================================================
// INTERRUPT FLAG
// =============================================================================

// Interrupt is the cooperative cancellation flag for an in-flight
// generation. Any goroutine may Trip it; the stream reader polls it
// between chunks and stops at the next boundary. Clear re-arms the flag
// for the next generation.
type Interrupt struct {
	tripped atomic.Bool
}

// Trip requests that the current generation stop.
func (i *Interrupt) Trip() { i.tripped.Store(true) }

// Clear re-arms the flag.
func (i *Interrupt) Clear() { i.tripped.Store(false) }

// Tripped reports whether a stop has been requested.
func (i *Interrupt) Tripped() bool { return i.tripped.Load() }

// =============================================================================
// WIRE TYPES
// =============================================================================

// GenerateRequest is the request body for the generate endpoint.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// Options carries sampling parameters. Pointer fields are omitted when
// unset so the backend's own defaults apply.
type Options struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	NumPredict       *int     `json:"num_predict,omitempty"`
	RepeatPenalty    *float64 `json:"repeat_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
	Stop             []string `json:"stop,omitempty"`
}

// OptionsFromSampling maps a sampling preset onto wire options.
func OptionsFromSampling(s *settings.SamplingSettings) *Options {
	if s == nil {
		return nil
	}
	return &Options{
		Temperature:      s.Temperature,
		TopP:             s.TopP,
		TopK:             s.TopK,
		NumPredict:       s.MaxTokens,
		RepeatPenalty:    s.RepetitionPenalty,
		PresencePenalty:  s.PresencePenalty,
		FrequencyPenalty: s.FrequencyPenalty,
		Seed:             s.Seed,
		Stop:             s.Stop,
	}
}

// StreamChunk is one decoded chunk of a streaming response. On the final
// chunk Done is true and the token counts are populated.
type StreamChunk struct {
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`

	// Interrupted is set locally when the stream stopped because the
	// interrupt flag tripped; it never comes from the wire.
	Interrupted bool `json:"-"`

	// Error is set on locally generated error chunks.
	Error error `json:"-"`
}

// apiError is the error body backends return on non-200 responses.
type apiError struct {
	Error string `json:"error"`
}
