// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations in a local sqlite database.
//
// Two tables: sessions group a conversation, entries hold its messages in
// creation order. The prompt window is assembled from recent entries only
// (past week by default), so old sessions age out of prompts without
// being deleted.
package storage
