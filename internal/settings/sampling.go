// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings manages named configuration presets.
package settings

import "github.com/jeranaias/loom-tui/internal/store"

// =============================================================================
// SAMPLING SETTINGS
// =============================================================================

// SamplingSettings is one generation preset. Fields are pointers so a
// preset only serializes the parameters it actually sets; unset parameters
// are left to the backend's defaults.
type SamplingSettings struct {
	Name string `json:"name"`

	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	MaxTokens         *int     `json:"max_tokens,omitempty"`
	RepetitionPenalty *float64 `json:"repetition_penalty,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	Seed              *int     `json:"seed,omitempty"`
	Stop              []string `json:"stop,omitempty"`
}

// Built-in sampling preset ids.
const (
	SamplingDefault  = "default"
	SamplingCreative = "creative"
	SamplingPrecise  = "precise"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

// builtinSampling are always resolvable.
func builtinSampling() map[string]SamplingSettings {
	return map[string]SamplingSettings{
		SamplingDefault: {
			Name:        "Default",
			Temperature: f64(0.7),
			TopP:        f64(0.9),
			MaxTokens:   i(512),
		},
		SamplingCreative: {
			Name:              "Creative",
			Temperature:       f64(1.1),
			TopP:              f64(0.95),
			MaxTokens:         i(768),
			RepetitionPenalty: f64(1.1),
		},
		SamplingPrecise: {
			Name:        "Precise",
			Temperature: f64(0.3),
			TopP:        f64(0.8),
			TopK:        i(40),
			MaxTokens:   i(512),
		},
	}
}

// NewSamplingManager returns the sampling preset manager.
func NewSamplingManager(kv store.KV) *Manager[SamplingSettings] {
	return NewManager(kv, store.KeySamplingSettings, SamplingDefault, builtinSampling())
}
