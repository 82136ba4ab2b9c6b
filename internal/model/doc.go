// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation messages.
//
// A Message is immutable once created: the storage layer produces them in
// creation order and every other package consumes them as an ordered
// sequence. Token counts are estimates only (~4 bytes per token), good
// enough for window budgeting but not for billing.
package model
