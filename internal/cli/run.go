// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// run.go - Top-level command dispatch for the loom CLI.

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Run dispatches argv to a command handler and returns the process exit
// code. The default command is the interactive chat REPL.
func Run(argv []string) int {
	cmd := "chat"
	if len(argv) > 0 {
		switch {
		case argv[0] == "--help" || argv[0] == "-h":
			cmd = "help"
		case !strings.HasPrefix(argv[0], "-"):
			cmd = argv[0]
		}
	}

	args := NewArgParser(argv)

	var err error
	switch cmd {
	case "chat":
		err = HandleChatCommand(args)
	case "ask":
		err = HandleAskCommand(args)
	case "config":
		err = HandleConfigCommand(args)
	case "version":
		printVersion()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		return 1
	}
	return 0
}

// printUsage prints top-level usage.
func printUsage() {
	fmt.Println("loom - conversation and context engine for local LLM chat")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  loom [chat]          Start interactive chat (default)")
	fmt.Println("  loom ask MESSAGE     Run one generation turn and exit")
	fmt.Println("  loom config show     Print the effective configuration")
	fmt.Println("  loom config path     Print the config file path")
	fmt.Println("  loom config init     Write a default config file")
	fmt.Println("  loom version         Print version information")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -q, --quiet          Minimal output")
	fmt.Println("  --new                (ask) start a fresh conversation")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  LOOM_DATA_DIR, LOOM_ENDPOINT, LOOM_MODEL, LOOM_API_KEY,")
	fmt.Println("  LOOM_STORE, LOOM_WATCH, LOOM_SCAN_MESSAGES, LOOM_THEME, NO_COLOR")
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("loom %s\n", Version)
	fmt.Printf("  commit:  %s\n", GitCommit)
	fmt.Printf("  built:   %s\n", BuildDate)
	fmt.Printf("  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
