// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/registry"
	"github.com/jeranaias/parley/internal/storage"
	"github.com/jeranaias/parley/internal/window"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the slice of conversation persistence the dispatcher needs.
// *storage.Store satisfies it.
type Store interface {
	AppendEntry(ctx context.Context, sessionID int64, role model.Role, content, modelName string) (int64, error)
	RecentEntries(ctx context.Context, sessionID int64, since time.Time) ([]storage.Entry, error)
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher routes conversation turns to backend adapters.
type Dispatcher struct {
	registry *registry.Registry
	adapters map[registry.Kind]backend.Adapter
	limiter  *rate.Limiter
}

// New creates a dispatcher over a fixed adapter set.
func New(reg *registry.Registry, adapters map[registry.Kind]backend.Adapter) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		adapters: adapters,
	}
}

// WithLimiter throttles outgoing requests. Nil disables throttling.
func (d *Dispatcher) WithLimiter(l *rate.Limiter) *Dispatcher {
	d.limiter = l
	return d
}

// Respond looks the model up, trims history to its budget, and opens a
// reply stream on the matching adapter. History is oldest first.
//
// Fails before any backend contact when the model is unknown, the
// adapter is missing, or nothing fits the token budget.
func (d *Dispatcher) Respond(ctx context.Context, history []model.Message, modelName string) (*backend.Stream, error) {
	m, err := d.registry.Lookup(modelName)
	if err != nil {
		return nil, err
	}

	adapter, ok := d.adapters[m.Backend]
	if !ok {
		return nil, backend.ConfigError("no adapter configured for backend " + string(m.Backend))
	}

	windowed := window.Window(history, m.MaxTokens)
	if len(windowed) == 0 {
		return nil, backend.ErrEmptyHistory
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := backend.Request{Model: m.ResolvedID()}
	if m.Backend == registry.KindOllama {
		req.Prompt = FlattenMessages(windowed)
	} else {
		req.Messages = windowed
	}

	return adapter.Stream(ctx, req)
}

// =============================================================================
// TURNS
// =============================================================================

// Turn runs one full exchange: persist the user message, assemble the
// prompt from recent entries, stream the reply through emit, and persist
// the assistant message.
//
// The user message is stored before the backend is contacted, so a
// failed turn still contributes to the next prompt. The assistant
// message is stored only when the stream completes cleanly; on error the
// fragments already shown are returned alongside it but never persisted.
func (d *Dispatcher) Turn(ctx context.Context, store Store, sessionID int64, modelName, userMessage string, emit func(fragment string)) (string, error) {
	if _, err := store.AppendEntry(ctx, sessionID, model.RoleUser, userMessage, ""); err != nil {
		return "", err
	}

	entries, err := store.RecentEntries(ctx, sessionID, time.Now().Add(-storage.RecentWindow))
	if err != nil {
		return "", err
	}
	history := make([]model.Message, len(entries))
	for i, e := range entries {
		history[i] = e.Message()
	}

	stream, err := d.Respond(ctx, history, modelName)
	if err != nil {
		return "", err
	}

	full, err := stream.Collect(emit)
	if err != nil {
		return full, err
	}

	reply := cleanReply(full)
	if _, err := store.AppendEntry(ctx, sessionID, model.RoleAssistant, reply, modelName); err != nil {
		return reply, err
	}
	return reply, nil
}

// =============================================================================
// PROMPT FLATTENING
// =============================================================================

// FlattenMessages renders structured messages as a single prompt for
// completion-style backends, one "role: content" line per message.
func FlattenMessages(messages []model.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role.String())
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// cleanReply strips the "assistant:" echo that flattened-prompt models
// tend to produce, since the prompt showed them that prefix on every
// line.
func cleanReply(reply string) string {
	if strings.HasPrefix(reply, "assistant:") {
		return strings.TrimSpace(strings.TrimPrefix(reply, "assistant:"))
	}
	return reply
}
