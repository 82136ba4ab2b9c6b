// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want Args
	}{
		{"empty", nil, Args{}},
		{"one-off question", []string{"-q", "what is Go?"}, Args{Question: "what is Go?"}},
		{"long question flag", []string{"--question", "hi"}, Args{Question: "hi"}},
		{"equals form", []string{"--model=opus"}, Args{Model: "opus"}},
		{"file mode", []string{"-f", "prompt.txt"}, Args{File: "prompt.txt"}},
		{"model short", []string{"-m", "haiku"}, Args{Model: "haiku"}},
		{"session", []string{"--session", "work"}, Args{Session: "work"}},
		{"config path", []string{"--config", "/tmp/c.toml"}, Args{ConfigPath: "/tmp/c.toml"}},
		{"quiet", []string{"--quiet"}, Args{Quiet: true}},
		{"help", []string{"-h"}, Args{Help: true}},
		{"combined", []string{"--quiet", "-m", "gpt-4", "-q", "hi"},
			Args{Quiet: true, Model: "gpt-4", Question: "hi"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseArgs(tc.raw)
			if err != nil {
				t.Fatalf("ParseArgs: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseArgs = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
	}{
		{"unknown flag", []string{"--frobnicate", "x"}},
		{"missing value", []string{"-q"}},
		{"bare positional", []string{"hello"}},
		{"question and file", []string{"-q", "hi", "-f", "a.txt"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseArgs(tc.raw); err == nil {
				t.Errorf("ParseArgs(%v) should fail", tc.raw)
			}
		})
	}
}

func TestUsageNamesEveryCommand(t *testing.T) {
	usage := Usage()
	for _, cmd := range []string{`\help`, `\model`, `\session`, `\sessions`, `\rename_session`, `\quit`} {
		if !strings.Contains(usage, cmd) {
			t.Errorf("usage text missing %s", cmd)
		}
	}
}
