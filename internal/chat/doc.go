// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates a conversation turn: look the model up,
// trim the history to its budget, pick the matching backend adapter, and
// stream the reply.
//
// The dispatcher owns the structural difference between backends:
// structured message lists go to the cloud providers, while Ollama takes
// a single flattened prompt. Adapters never see the other shape.
package chat
