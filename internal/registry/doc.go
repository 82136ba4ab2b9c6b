// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry maps user-facing model names to the backend that
// serves them and the token budget that bounds their prompts.
//
// The registry is built once at startup from configuration and never
// mutated, so lookups are safe from any goroutine.
package registry
