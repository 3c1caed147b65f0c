// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParserBasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"ask", "--model", "llama3"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model") != "llama3" {
					t.Errorf("Flag(model) = %q, want %q", p.Flag("model"), "llama3")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"ask", "--model=llama3"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model") != "llama3" {
					t.Errorf("Flag(model) = %q, want %q", p.Flag("model"), "llama3")
				}
			},
		},
		{
			name:    "boolean flag",
			args:    []string{"ask", "--quiet"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("quiet") {
					t.Error("BoolFlag(quiet) should be true")
				}
			},
		},
		{
			name:    "explicit false boolean",
			args:    []string{"ask", "--quiet=false"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("quiet") {
					t.Error("BoolFlag(quiet) should be false")
				}
			},
		},
		{
			name:    "short flag with value",
			args:    []string{"-m", "llama3", "hello"},
			wantSub: "hello",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("m") != "llama3" {
					t.Errorf("Flag(m) = %q, want %q", p.Flag("m"), "llama3")
				}
			},
		},
		{
			name:    "no arguments",
			args:    []string{},
			wantSub: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParserPositionals(t *testing.T) {
	p := NewArgParser([]string{"ask", "tell", "me", "a", "story", "--quiet"})

	if got := p.PositionalCount(); got != 5 {
		t.Fatalf("PositionalCount() = %d, want 5", got)
	}
	if got := JoinPositionalArgs(p, 1); got != "tell me a story" {
		t.Errorf("JoinPositionalArgs = %q", got)
	}
	if got := p.Positional(99); got != "" {
		t.Errorf("Positional(99) = %q, want empty", got)
	}
	if got := p.PositionalFrom(99); len(got) != 0 {
		t.Errorf("PositionalFrom(99) = %v, want empty", got)
	}
}

func TestArgParserFlagDefaults(t *testing.T) {
	p := NewArgParser([]string{"--count", "7"})

	if got := p.FlagIntOrDefault("count", 3); got != 7 {
		t.Errorf("FlagIntOrDefault(count) = %d, want 7", got)
	}
	if got := p.FlagIntOrDefault("missing", 3); got != 3 {
		t.Errorf("FlagIntOrDefault(missing) = %d, want 3", got)
	}
	if got := p.FlagOrDefault("missing", "fallback"); got != "fallback" {
		t.Errorf("FlagOrDefault(missing) = %q, want fallback", got)
	}
	if !p.HasFlag("count") || p.HasFlag("missing") {
		t.Error("HasFlag mismatch")
	}
}

func TestParseBoolString(t *testing.T) {
	truthy := []string{"true", "YES", "y", "1", "on"}
	falsy := []string{"false", "No", "n", "0", "off"}

	for _, s := range truthy {
		v, err := ParseBoolString(s)
		if err != nil || !v {
			t.Errorf("ParseBoolString(%q) = %v, %v; want true", s, v, err)
		}
	}
	for _, s := range falsy {
		v, err := ParseBoolString(s)
		if err != nil || v {
			t.Errorf("ParseBoolString(%q) = %v, %v; want false", s, v, err)
		}
	}
	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) should error")
	}
}

// =============================================================================
// DISPLAY HELPER TESTS (display.go)
// =============================================================================

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}

	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDescribeBudget(t *testing.T) {
	if got := describeBudget(0); got != "0 (disabled)" {
		t.Errorf("describeBudget(0) = %q", got)
	}
	if got := describeBudget(-1); got != "uncapped" {
		t.Errorf("describeBudget(-1) = %q", got)
	}
	if got := describeBudget(25); got != "25" {
		t.Errorf("describeBudget(25) = %q", got)
	}
}

// =============================================================================
// TERMINAL TESTS (terminal.go)
// =============================================================================

func TestWrapTextPreservesNewlines(t *testing.T) {
	in := "line one\nline two"
	out := WrapText(in, 40)
	if !strings.Contains(out, "line one\n") {
		t.Errorf("WrapText lost newline: %q", out)
	}
}

func TestWrapTextWrapsLongLines(t *testing.T) {
	in := strings.Repeat("word ", 30)
	out := WrapText(in, 40)

	for _, line := range strings.Split(out, "\n") {
		if len(line) > 40 {
			t.Errorf("line exceeds width: %q", line)
		}
	}
}

func TestTTYRequiredError(t *testing.T) {
	err := &TTYRequiredError{Operation: "chat"}
	if !strings.Contains(err.Error(), "chat") {
		t.Errorf("error should name the operation: %q", err.Error())
	}

	bare := &TTYRequiredError{}
	if bare.Error() == "" {
		t.Error("bare error should still have a message")
	}
}
