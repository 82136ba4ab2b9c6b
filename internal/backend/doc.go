// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the provider adapters that turn a trimmed
// conversation into a stream of reply fragments.
//
// Three adapters are provided: OpenAI (chat completions), Anthropic
// (messages API over SSE), and Ollama (local NDJSON generation). All three
// satisfy the Adapter interface and produce the same pull-based Stream, so
// callers never branch on the provider once a stream is established.
//
// Errors carry a Kind so callers can distinguish transport failures (which
// may be retried) from provider, credential, and configuration failures
// (which may not).
package backend
