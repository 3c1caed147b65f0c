// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt turns a conversation, its lorebooks, and a format preset
// into the single prompt string sent to the generation backend.
package prompt

import (
	"strings"

	"github.com/jeranaias/loom-tui/internal/model"
)

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// Estimator maps text to an estimated token count. The real tokenizer is a
// backend concern; everything in this package only needs a consistent
// estimate for budget enforcement.
type Estimator interface {
	Estimate(text string) int
}

// HeuristicEstimator approximates GPT-style tokenization: ~4 chars per
// token on average, blended with the word count for better accuracy on
// prose.
type HeuristicEstimator struct{}

// Estimate returns the blended word/char token estimate.
func (HeuristicEstimator) Estimate(text string) int {
	words := len(strings.Fields(text))
	chars := len(text)
	return (words + chars/4) / 2
}

// MessageTokens returns the message's token estimate, computing and caching
// it when the cache is cold. The cache is only ever valid for the current
// Text; mutations null it.
func MessageTokens(est Estimator, msg *model.Message) int {
	if msg.TokenCount != nil {
		return *msg.TokenCount
	}
	n := est.Estimate(msg.Text)
	msg.CacheTokenCount(n)
	return n
}
