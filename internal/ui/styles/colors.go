// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for parley's terminal
// output. All colors use Lip Gloss AdaptiveColor for automatic
// light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLORS
// =============================================================================

// Purple - assistant replies
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - prompts, commands, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Amber - the answer marker and session banners
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// TextSecondary - labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Prompt is the input prompt style.
	Prompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	// Answer marks the start of an assistant reply.
	Answer = lipgloss.NewStyle().Foreground(Amber).Bold(true)

	// Info renders session banners and hints.
	Info = lipgloss.NewStyle().Foreground(TextSecondary)

	// Command highlights backslash commands in help text.
	Command = lipgloss.NewStyle().Foreground(Emerald)

	// Error renders failures.
	Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)
)
