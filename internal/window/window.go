// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package window

import (
	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// PROMPT WINDOWING
// =============================================================================

// Window selects the maximal trailing run of messages that fits within
// maxTokens under the message token estimate.
//
// History must be in creation order (oldest first). The scan walks from the
// most recent entry backwards, accumulating estimated cost, and stops at the
// first entry that would push the total over the budget. The selected
// entries are returned oldest first.
//
// Returns an empty slice when nothing fits: maxTokens <= 0, empty history,
// or the single most recent entry alone exceeding the budget. Callers must
// treat an empty result as fatal to the turn, since every backend requires
// at least one message.
func Window(history []model.Message, maxTokens int) []model.Message {
	if len(history) == 0 || maxTokens <= 0 {
		return nil
	}

	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := history[i].EstimateTokens()
		if total+cost > maxTokens {
			break
		}
		total += cost
		start = i
	}

	if start == len(history) {
		return nil
	}

	// The suffix is already oldest-first; copy so callers never alias the
	// stored history.
	out := make([]model.Message, len(history)-start)
	copy(out, history[start:])
	return out
}

// Cost returns the total estimated token cost of a message sequence.
func Cost(messages []model.Message) int {
	total := 0
	for _, m := range messages {
		total += m.EstimateTokens()
	}
	return total
}
