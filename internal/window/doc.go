// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package window trims conversation history to a per-model token budget.
//
// Selection scans newest-first and stops at the first entry that would
// overflow the budget, so the result is always a contiguous suffix of the
// conversation in time order. Older entries past the first overflow are
// dropped even when they would individually fit.
package window
