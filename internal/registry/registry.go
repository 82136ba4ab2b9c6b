// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"sort"

	"github.com/jeranaias/parley/internal/backend"
)

// =============================================================================
// BACKEND KINDS
// =============================================================================

// Kind identifies which adapter serves a model. The set is closed: models
// resolve to exactly one of these three at registry construction, never
// via runtime registration.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
)

// Valid reports whether the kind names a known adapter.
func (k Kind) Valid() bool {
	switch k {
	case KindOpenAI, KindAnthropic, KindOllama:
		return true
	}
	return false
}

// =============================================================================
// MODEL CONFIG
// =============================================================================

// ModelConfig describes one selectable model.
type ModelConfig struct {
	// Name is the user-facing model name.
	Name string

	// Backend selects the adapter.
	Backend Kind

	// MaxTokens bounds the estimated size of the prompt window. Input
	// only; reply length is capped separately by each backend.
	MaxTokens int

	// ModelID is the identifier sent on the wire when it differs from
	// Name (Anthropic aliases, remapped Ollama tags). Empty means Name
	// is sent as-is.
	ModelID string
}

// ResolvedID returns the identifier to send to the backend.
func (m ModelConfig) ResolvedID() string {
	if m.ModelID != "" {
		return m.ModelID
	}
	return m.Name
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry resolves model names. Immutable after construction.
type Registry struct {
	models map[string]ModelConfig
}

// New builds a registry from a model list. Entries with an empty name, a
// non-positive budget, or an unknown backend kind are rejected.
func New(models []ModelConfig) (*Registry, error) {
	byName := make(map[string]ModelConfig, len(models))
	for _, m := range models {
		if m.Name == "" {
			return nil, backend.ConfigError("model entry with empty name")
		}
		if !m.Backend.Valid() {
			return nil, backend.ConfigError("model " + m.Name + ": unknown backend kind " + string(m.Backend))
		}
		if m.MaxTokens <= 0 {
			return nil, backend.ConfigError("model " + m.Name + ": max_tokens must be positive")
		}
		byName[m.Name] = m
	}
	return &Registry{models: byName}, nil
}

// Lookup resolves a model name. Unknown names fail with a config error
// naming the model.
func (r *Registry) Lookup(name string) (ModelConfig, error) {
	m, ok := r.models[name]
	if !ok {
		return ModelConfig{}, backend.ConfigError("unknown model: " + name)
	}
	return m, nil
}

// Names returns all registered model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
