// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot generation command for the loom CLI.
//
// Handles "loom ask MESSAGE": runs a single turn against the current
// conversation and exits. The turn is persisted exactly like an
// interactive one, so a later "loom chat" picks up where ask left off.
//
// Examples:
//   loom ask "continue the story"
//   loom ask --new "start something fresh"
//   echo "what happened so far?" | loom ask
//   loom ask --quiet "..." > reply.txt

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

// MaxStdinSize caps piped input (256KB). Larger input is almost certainly
// a mistake and would blow the prompt budget anyway.
const MaxStdinSize = 256 * 1024

// HandleAskCommand handles the "ask" command.
func HandleAskCommand(args *ArgParser) error {
	// Skip the "ask" subcommand itself when assembling the message
	message := JoinPositionalArgs(args, 1)

	// Fall back to piped stdin when no message argument is given
	if message == "" && !IsTTY() {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, MaxStdinSize+1))
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		if len(data) > MaxStdinSize {
			return fmt.Errorf("stdin too large (max %d bytes)", MaxStdinSize)
		}
		message = strings.TrimSpace(string(data))
	}

	if message == "" {
		return fmt.Errorf("usage: loom ask MESSAGE (or pipe input)")
	}

	ctx := context.Background()

	app, err := OpenApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if args.BoolFlag("new") {
		app.Manager.NewConversation(ctx)
	}

	if err := app.Gen.Client().CheckRunning(ctx); err != nil {
		return fmt.Errorf("backend not reachable: %w", err)
	}

	// Ctrl+C interrupts the stream; the partial reply is still kept and
	// persisted, and the command exits normally.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			app.Gen.Interrupt.Trip()
		}
	}()

	conv := app.Manager.Current()
	quiet := args.BoolFlag("quiet") || args.BoolFlag("q")

	// Markdown is collected and rendered whole; plain output streams live.
	useMarkdown := app.Config.UI.Markdown && IsStdoutTTY()
	if !useMarkdown {
		app.Gen.OnToken = streamToStdout
	}

	start := time.Now()
	result, err := app.Gen.Send(ctx, message, app.FormatFor(conv.PromptFormat), app.SamplingCurrent())
	if err != nil {
		return err
	}

	if useMarkdown {
		displayReply(result.Reply.Text, true)
	}
	fmt.Println()

	if result.Interrupted && !quiet {
		fmt.Fprintln(os.Stderr, warningStyle.Render("[Interrupted]"))
	}

	if !quiet && app.Config.UI.ShowTokens {
		showTurnStats(result, time.Since(start))
	}

	return nil
}
