// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

// Args holds the parsed command line.
type Args struct {
	// Question is a one-off question (-q/--question). The process asks,
	// streams the answer, and exits.
	Question string

	// File reads the question from a file (-f/--file).
	File string

	// Model overrides the configured default model (-m/--model).
	Model string

	// ConfigPath overrides the config file location (--config).
	ConfigPath string

	// Session resumes a named session instead of starting a fresh one
	// (--session).
	Session string

	// Quiet suppresses banners (--quiet).
	Quiet bool

	// Help requests usage output (-h/--help).
	Help bool
}

// valueFlags maps flag names to the Args field they fill.
func (a *Args) set(name, value string) error {
	switch name {
	case "q", "question":
		a.Question = value
	case "f", "file":
		a.File = value
	case "m", "model":
		a.Model = value
	case "config":
		a.ConfigPath = value
	case "session":
		a.Session = value
	default:
		return fmt.Errorf("unknown flag: --%s", name)
	}
	return nil
}

// ParseArgs parses the raw command line. Both "--flag value" and
// "--flag=value" forms are accepted.
func ParseArgs(raw []string) (Args, error) {
	var args Args

	i := 0
	for i < len(raw) {
		arg := raw[i]
		if !strings.HasPrefix(arg, "-") {
			return args, fmt.Errorf("unexpected argument: %s", arg)
		}

		name := strings.TrimLeft(arg, "-")

		// --flag=value
		if eq := strings.Index(name, "="); eq >= 0 {
			if err := args.set(name[:eq], name[eq+1:]); err != nil {
				return args, err
			}
			i++
			continue
		}

		switch name {
		case "h", "help":
			args.Help = true
			i++
		case "quiet":
			args.Quiet = true
			i++
		default:
			if i+1 >= len(raw) {
				return args, fmt.Errorf("flag --%s requires a value", name)
			}
			if err := args.set(name, raw[i+1]); err != nil {
				return args, err
			}
			i += 2
		}
	}

	if args.Question != "" && args.File != "" {
		return args, fmt.Errorf("-q and -f are mutually exclusive")
	}
	return args, nil
}

// Usage returns the help text.
func Usage() string {
	return `parley - chat with OpenAI, Anthropic, or local Ollama models

Usage:
  parley                      Start an interactive session
  parley -q "question"        Ask one question and exit
  parley -f question.txt      Ask the contents of a file and exit

Flags:
  -q, --question TEXT   One-off question
  -f, --file PATH       Read the question from a file
  -m, --model NAME      Model to use (overrides config and PARLEY_MODEL)
      --session NAME    Resume a named session
      --config PATH     Config file (default ~/.parley/config.toml)
      --quiet           Suppress banners
  -h, --help            Show this help

Interactive commands:
  \help                 Show available commands
  \model NAME           Switch model for following turns
  \session NAME         Switch to a previous session
  \sessions             List sessions
  \rename_session NAME  Rename the current session
  \quit                 Exit (also Ctrl+C / Ctrl+D)
`
}
