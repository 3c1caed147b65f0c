// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for the loom CLI.
//
// All colors use AdaptiveColor so they remain readable on both light and
// dark backgrounds. The "plain" theme disables colors entirely via
// ForceColorsEnabled, which drops lipgloss to the Ascii profile.

package cli

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

var (
	// Cyan - prompts, user highlights
	colorCyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

	// Purple - bot messages, banner
	colorPurple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

	// Emerald - success, confirmations
	colorEmerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

	// Amber - warnings
	colorAmber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

	// Rose - errors
	colorRose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

	// Muted text - hints, separators, stats
	colorMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

	// Secondary text - labels
	colorSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Prompt style
	promptStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	// Welcome banner style
	welcomeStyle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true)

	// Info style
	infoStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	// Command/confirmation style
	commandStyle = lipgloss.NewStyle().
			Foreground(colorEmerald)

	// Warning style
	warningStyle = lipgloss.NewStyle().
			Foreground(colorAmber)

	// Error style
	errorStyle = lipgloss.NewStyle().
			Foreground(colorRose)

	// Muted style for stats lines and separators
	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Section header style
	headerStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	// User speaker label in history listings
	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorCyan)

	// Bot speaker label in history listings
	botLabelStyle = lipgloss.NewStyle().
			Foreground(colorPurple)
)
