// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package window

import (
	"strings"
	"testing"

	"github.com/jeranaias/parley/internal/model"
)

// msgs builds a user/assistant alternating history from content strings,
// oldest first.
func msgs(contents ...string) []model.Message {
	out := make([]model.Message, 0, len(contents))
	for i, c := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		out = append(out, model.Message{Role: role, Content: c})
	}
	return out
}

func TestWindowEmptyHistory(t *testing.T) {
	if got := Window(nil, 100); len(got) != 0 {
		t.Errorf("Window(nil) = %d messages, want 0", len(got))
	}
	if got := Window([]model.Message{}, 100); len(got) != 0 {
		t.Errorf("Window(empty) = %d messages, want 0", len(got))
	}
}

func TestWindowZeroBudget(t *testing.T) {
	history := msgs("hello", "world")
	if got := Window(history, 0); len(got) != 0 {
		t.Errorf("Window with zero budget = %d messages, want 0", len(got))
	}
}

func TestWindowNewestEntryTooLarge(t *testing.T) {
	history := msgs("short", strings.Repeat("x", 400))

	// The newest entry alone costs ~101 tokens; nothing should fit.
	got := Window(history, 50)
	if len(got) != 0 {
		t.Errorf("Window = %d messages, want 0 when newest entry overflows", len(got))
	}
}

func TestWindowKeepsAllWhenUnderBudget(t *testing.T) {
	history := msgs("one", "two", "three")

	got := Window(history, 1000)
	if len(got) != 3 {
		t.Fatalf("Window = %d messages, want 3", len(got))
	}
	for i := range got {
		if got[i].Content != history[i].Content {
			t.Errorf("message %d = %q, want %q", i, got[i].Content, history[i].Content)
		}
	}
}

func TestWindowDropsOldestFirst(t *testing.T) {
	// Each message costs (4|9 + len + 3)/4 tokens. Budget admits only the
	// newest two.
	history := msgs(
		strings.Repeat("a", 40), // user, 11 tokens
		strings.Repeat("b", 40), // assistant, 13 tokens
		strings.Repeat("c", 40), // user, 11 tokens
		strings.Repeat("d", 40), // assistant, 13 tokens
	)

	got := Window(history, 24)
	if len(got) != 2 {
		t.Fatalf("Window = %d messages, want 2", len(got))
	}
	if got[0].Content != history[2].Content || got[1].Content != history[3].Content {
		t.Error("Window should keep the newest suffix in time order")
	}
}

func TestWindowStopsAtFirstOverflow(t *testing.T) {
	// The second-newest entry overflows; the small oldest entry must be
	// dropped too even though it would individually fit.
	history := msgs(
		"tiny",                   // would fit on its own
		strings.Repeat("x", 400), // overflows
		"also tiny",              // newest, fits
	)

	got := Window(history, 20)
	if len(got) != 1 {
		t.Fatalf("Window = %d messages, want 1", len(got))
	}
	if got[0].Content != "also tiny" {
		t.Errorf("kept %q, want newest entry only", got[0].Content)
	}
}

func TestWindowResultIsSuffix(t *testing.T) {
	history := msgs("a", "bb", "ccc", "dddd", "eeeee", "ffffff")

	for budget := 0; budget <= 30; budget++ {
		got := Window(history, budget)

		// Must be a suffix of history in time order.
		offset := len(history) - len(got)
		for i := range got {
			if got[i].Content != history[offset+i].Content {
				t.Fatalf("budget %d: result is not a time-ordered suffix", budget)
			}
		}

		// Must respect the budget.
		if len(got) > 0 && Cost(got) > budget {
			t.Fatalf("budget %d: cost %d exceeds budget", budget, Cost(got))
		}
	}
}

func TestWindowIdempotent(t *testing.T) {
	history := msgs("alpha", "beta", "gamma", "delta", "epsilon")

	for _, budget := range []int{0, 5, 10, 15, 1000} {
		once := Window(history, budget)
		twice := Window(once, budget)

		if len(once) != len(twice) {
			t.Fatalf("budget %d: window not idempotent (%d vs %d messages)",
				budget, len(once), len(twice))
		}
		for i := range once {
			if once[i].Content != twice[i].Content {
				t.Fatalf("budget %d: window not idempotent at index %d", budget, i)
			}
		}
	}
}

func TestWindowDoesNotAliasHistory(t *testing.T) {
	history := msgs("one", "two")

	got := Window(history, 1000)
	got[0].Content = "mutated"

	if history[0].Content != "one" {
		t.Error("Window result aliases the input history")
	}
}

func TestCost(t *testing.T) {
	history := msgs("abcd", "efgh")
	want := history[0].EstimateTokens() + history[1].EstimateTokens()
	if got := Cost(history); got != want {
		t.Errorf("Cost = %d, want %d", got, want)
	}
}
