// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the parley command line: one-off questions,
// file-driven questions, and the interactive REPL.
//
// Every invocation starts a fresh session in storage; the REPL's
// backslash commands can switch to an earlier one.
package cli
