// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for parley.
//
// Configuration is TOML, with sensible built-in defaults and environment
// variable overrides. File location: ~/.parley/config.toml.
//
// API keys are never stored in the config file; they are read from the
// environment once at startup via LoadCredentials.
package config
