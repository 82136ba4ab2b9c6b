// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// ADAPTER INTERFACE
// =============================================================================

// Request carries a prepared prompt to a backend adapter. The dispatch
// layer fills Messages for structured backends and Prompt for backends
// that take a single flattened string; adapters read whichever form they
// need and ignore the other.
type Request struct {
	// Model is the identifier the backend expects, already resolved from
	// the user-facing name.
	Model string

	// Messages is the trimmed history, oldest first. Never empty for
	// structured backends.
	Messages []model.Message

	// Prompt is the flattened history for completion-style backends.
	Prompt string
}

// Adapter establishes a streaming completion against one provider.
//
// Stream blocks until the connection is established and the response
// status is known, then returns a Stream of reply fragments. Errors
// before the first fragment surface here; errors after it surface from
// Stream.Recv.
type Adapter interface {
	// Name identifies the adapter in errors and logs.
	Name() string

	Stream(ctx context.Context, req Request) (*Stream, error)
}

// =============================================================================
// SHARED HTTP CLIENT
// =============================================================================

// streamingClient is shared by the hand-rolled HTTP adapters. No overall
// timeout: streams are long-lived and cancellation flows through the
// request context. The response header timeout bounds establishment.
var streamingClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	},
}
