// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the loom CLI.
//
// USABILITY: Markdown rendering and input history for better CLI experience
//
// Handles the "loom chat" command (also the default command), an
// interactive REPL over the persisted conversation store.
//
// Examples:
//   loom                      Start interactive chat
//   loom chat --quiet         Start chat with minimal output
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new conversation
//   /list               List conversations
//   /switch ID          Switch to a conversation
//   /delete [ID]        Delete a conversation (current if no ID)
//   /rename NAME        Rename the current conversation
//   /names USER BOT     Set participant display names
//   /memory [TEXT]      Show or set conversation memory
//   /note [TEXT]        Show or set the author's note
//   /format [ID]        Show or switch prompt format preset
//   /sampling [ID]      Show or switch sampling preset
//   /connection [ID]    Show or switch connection preset
//   /lorebook ...       Manage lorebooks (list/create/delete/enable/disable/order)
//   /budget ...         Show or set lorebook activation budgets
//   /history            Show conversation history
//   /regen              Regenerate the last reply
//   /prompt             Show the prompt behind the last reply
//   /drop KEY           Delete a message by key
//   /toggle KEY         Enable/disable a message by key
//   /quit, /q           Exit chat
//   Ctrl+C              Interrupt current generation
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/loom-tui/internal/config"
	"github.com/jeranaias/loom-tui/internal/generate"
	"github.com/jeranaias/loom-tui/internal/model"
	"github.com/jeranaias/loom-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	// SECURITY: history can contain chat content; owner read/write only
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	App   *App
	Quiet bool

	// Tracking
	StartTime   time.Time
	Turns       int
	TotalTokens int
	Interrupted int

	// Input history handler
	// USABILITY: Provides readline-like input with history
	InputCLI *ChatCLI
}

// NewChatSession creates a chat session over an opened App.
func NewChatSession(app *App, quiet bool) *ChatSession {
	return &ChatSession{
		App:       app,
		Quiet:     quiet,
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command with full interactive support.
func HandleChatCommand(args *ArgParser) error {
	ctx := context.Background()

	app, err := OpenApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.WatchLorebooks(); err != nil {
		fmt.Fprintf(os.Stderr, "%s lorebook watcher unavailable: %v\n",
			warningStyle.Render("[Warning]"), err)
	}

	session := NewChatSession(app, args.BoolFlag("quiet") || args.BoolFlag("q"))

	// Hooks are registered after Startup so restored state loads silently.
	app.Manager.SetOnConversationLoaded(func() {
		if conv := app.Manager.Current(); conv != nil && !session.Quiet {
			fmt.Println(infoStyle.Render("[Conversation] ") + conv.DisplayName)
		}
	})
	app.Manager.SetOnMessageDeleted(func(key string) {
		if !session.Quiet {
			fmt.Println(mutedStyle.Render("[Removed message " + key + "]"))
		}
	})

	// The backend being down is worth a warning, not a refusal: the store
	// and all slash commands work offline.
	if err := app.Gen.Client().CheckRunning(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s backend not reachable: %v\n",
			warningStyle.Render("[Warning]"), err)
	}

	if !session.Quiet {
		printWelcome(session)
	}

	// Ensure input history is saved on exit
	defer session.InputCLI.Close()

	// Ctrl+C during generation trips the interrupt flag; the stream stops
	// at the next chunk boundary and the partial reply is kept.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			app.Gen.Interrupt.Trip()
		}
	}()

	// Main REPL loop using liner for input history
	for {
		input, err := session.InputCLI.ReadInput(promptStyle.Render("loom> "))
		if err != nil {
			// Ctrl+C at the prompt (ErrPromptAborted) or Ctrl+D (EOF)
			// both exit gracefully.
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(session)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		if err := processMessage(ctx, session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage runs one generation turn and displays the streamed reply.
func processMessage(ctx context.Context, session *ChatSession, input string) error {
	app := session.App
	conv := app.Manager.Current()
	if conv == nil {
		return generate.ErrNoConversation
	}

	// USABILITY: Render markdown on TTY for better formatting. Markdown
	// output is collected and rendered whole; plain output streams live.
	useMarkdown := app.Config.UI.Markdown && IsStdoutTTY()
	if useMarkdown {
		app.Gen.OnToken = nil
	} else {
		app.Gen.OnToken = streamToStdout
	}

	fmt.Println() // Space before response

	start := time.Now()
	result, err := app.Gen.Send(ctx, input, app.FormatFor(conv.PromptFormat), app.SamplingCurrent())
	if err != nil {
		return err
	}

	if useMarkdown {
		displayReply(result.Reply.Text, true)
	}
	fmt.Println()
	fmt.Println() // Extra space after response

	session.Turns++
	session.TotalTokens += result.PromptTokens + result.CompletionTokens
	if result.Interrupted {
		session.Interrupted++
		fmt.Println(warningStyle.Render("[Interrupted]"))
	}

	if !session.Quiet && app.Config.UI.ShowTokens {
		showTurnStats(result, time.Since(start))
	}

	return nil
}

// showTurnStats prints one line of token accounting after a reply.
func showTurnStats(result *generate.Result, duration time.Duration) {
	fmt.Fprintf(os.Stderr, "%s %s prompt + %s reply tokens | %s\n",
		mutedStyle.Render("[Stats]"),
		formatNumber(result.PromptTokens),
		formatNumber(result.CompletionTokens),
		duration.Round(time.Millisecond))
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(cmd string, session *ChatSession) (bool, error) {
	ctx := context.Background()
	app := session.App

	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(cmd, parts[0]))

	switch command {
	case "/help", "/h", "/?", "/":
		printHelp()
		return true, nil

	case "/new":
		conv := app.Manager.NewConversation(ctx)
		fmt.Printf("%s %s (%s)\n",
			commandStyle.Render("[New]"), conv.DisplayName, conv.ID)
		return true, nil

	case "/list":
		printConversations(app)
		return true, nil

	case "/switch":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /switch ID")
		}
		id := resolveConversationID(app, args[0])
		app.Manager.SetConversation(ctx, id)
		if cur := app.Manager.Current(); cur == nil || cur.ID != id {
			return true, fmt.Errorf("no conversation %q", args[0])
		}
		return true, nil

	case "/delete":
		conv := app.Manager.Current()
		id := ""
		if len(args) > 0 {
			id = resolveConversationID(app, args[0])
		} else if conv != nil {
			id = conv.ID
		}
		if id == "" {
			return true, fmt.Errorf("nothing to delete")
		}
		app.Manager.DeleteConversation(ctx, id)
		if app.Manager.Current() == nil {
			app.Manager.NewConversation(ctx)
		}
		fmt.Println(commandStyle.Render("[Deleted]"))
		return true, nil

	case "/rename":
		if rest == "" {
			return true, fmt.Errorf("usage: /rename NAME")
		}
		conv := app.Manager.Current()
		conv.DisplayName = rest
		app.Manager.Save(ctx)
		fmt.Printf("%s %s\n", commandStyle.Render("[Renamed]"), rest)
		return true, nil

	case "/names":
		conv := app.Manager.Current()
		if len(args) == 0 {
			fmt.Printf("%s user=%q bot=%q\n",
				infoStyle.Render("[Names]"), conv.Username, conv.BotName)
			return true, nil
		}
		if len(args) != 2 {
			return true, fmt.Errorf("usage: /names USER BOT")
		}
		conv.Username, conv.BotName = args[0], args[1]
		app.Manager.Save(ctx)
		fmt.Println(commandStyle.Render("[OK]"))
		return true, nil

	case "/memory":
		return handleMemoryCommand(ctx, app, rest)

	case "/note":
		return handleNoteCommand(ctx, app, args, rest)

	case "/format":
		return handlePresetCommand(ctx, app, "format", args)

	case "/sampling":
		return handlePresetCommand(ctx, app, "sampling", args)

	case "/connection":
		return handlePresetCommand(ctx, app, "connection", args)

	case "/lorebook", "/books", "/lb":
		return handleLorebookCommand(ctx, app, args, rest)

	case "/budget":
		return handleBudgetCommand(ctx, app, args)

	case "/history":
		printHistory(app)
		return true, nil

	case "/regen":
		conv := app.Manager.Current()
		fmt.Println()
		useMarkdown := app.Config.UI.Markdown && IsStdoutTTY()
		if useMarkdown {
			app.Gen.OnToken = nil
		} else {
			app.Gen.OnToken = streamToStdout
		}
		result, err := app.Gen.Regenerate(ctx, app.FormatFor(conv.PromptFormat), app.SamplingCurrent())
		if err != nil {
			return true, err
		}
		if useMarkdown {
			displayReply(result.Reply.Text, true)
		}
		fmt.Println()
		session.Turns++
		session.TotalTokens += result.PromptTokens + result.CompletionTokens
		return true, nil

	case "/prompt":
		return true, printLastPrompt(app)

	case "/drop":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /drop KEY")
		}
		app.Manager.DeleteMessage(ctx, args[0])
		return true, nil

	case "/toggle":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /toggle KEY")
		}
		conv := app.Manager.Current()
		msg := conv.MessageByKey(args[0])
		if msg == nil {
			return true, fmt.Errorf("no message with key %q", args[0])
		}
		msg.SetDisabled(!msg.Disabled)
		app.Manager.UpdateMessage(ctx, msg, true)
		state := "enabled"
		if msg.Disabled {
			state = "disabled"
		}
		fmt.Printf("%s message %s %s\n", commandStyle.Render("[OK]"), msg.Key, state)
		return true, nil

	case "/status", "/s":
		printStatus(session)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

// resolveConversationID accepts either a conversation id or a 1-based
// index into the /list ordering.
func resolveConversationID(app *App, arg string) string {
	ids := app.Manager.ConversationIDs()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(ids) {
		return ids[n-1]
	}
	return arg
}

// handleMemoryCommand shows, sets, or clears the conversation memory.
func handleMemoryCommand(ctx context.Context, app *App, rest string) (bool, error) {
	conv := app.Manager.Current()

	switch {
	case rest == "":
		if conv.Memory == "" {
			fmt.Println(infoStyle.Render("[Memory] (empty)"))
		} else {
			fmt.Printf("%s %s\n", infoStyle.Render("[Memory]"), conv.Memory)
		}
	case rest == "clear":
		conv.Memory = ""
		app.Manager.Save(ctx)
		fmt.Println(commandStyle.Render("[Memory cleared]"))
	default:
		conv.Memory = rest
		app.Manager.Save(ctx)
		fmt.Println(commandStyle.Render("[Memory set]"))
	}
	return true, nil
}

// handleNoteCommand shows or sets the author's note. "/note pos N" moves
// the injection point N messages up from the end of history.
func handleNoteCommand(ctx context.Context, app *App, args []string, rest string) (bool, error) {
	conv := app.Manager.Current()

	switch {
	case rest == "":
		if conv.AuthorNote == "" {
			fmt.Println(infoStyle.Render("[Note] (empty)"))
		} else {
			fmt.Printf("%s %s (position %d)\n",
				infoStyle.Render("[Note]"), conv.AuthorNote, conv.AuthorNotePosition)
		}
	case rest == "clear":
		conv.AuthorNote = ""
		app.Manager.Save(ctx)
		fmt.Println(commandStyle.Render("[Note cleared]"))
	case len(args) == 2 && args[0] == "pos":
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return true, fmt.Errorf("position must be a non-negative integer")
		}
		conv.AuthorNotePosition = n
		app.Manager.Save(ctx)
		fmt.Printf("%s position %d\n", commandStyle.Render("[Note]"), n)
	default:
		conv.AuthorNote = rest
		app.Manager.Save(ctx)
		fmt.Println(commandStyle.Render("[Note set]"))
	}
	return true, nil
}

// handlePresetCommand lists or switches a settings preset manager. With no
// argument it lists presets, marking the active one.
func handlePresetCommand(ctx context.Context, app *App, kind string, args []string) (bool, error) {
	type presetView struct {
		ids     func() []string
		current func() string
		has     func(string) bool
		set     func(context.Context, string)
		copy    func(context.Context, string) string
	}

	var view presetView
	switch kind {
	case "format":
		view = presetView{app.Formats.IDs, app.Formats.CurrentID, app.Formats.Has, app.Formats.SetCurrent, app.Formats.Copy}
	case "sampling":
		view = presetView{app.Sampling.IDs, app.Sampling.CurrentID, app.Sampling.Has, app.Sampling.SetCurrent, app.Sampling.Copy}
	case "connection":
		view = presetView{app.Conns.IDs, app.Conns.CurrentID, app.Conns.Has, app.Conns.SetCurrent, app.Conns.Copy}
	}

	if len(args) == 0 {
		fmt.Println(headerStyle.Render(kind + " presets"))
		for _, id := range view.ids() {
			marker := "  "
			if id == view.current() {
				marker = commandStyle.Render("* ")
			}
			fmt.Printf("%s%s\n", marker, id)
		}
		return true, nil
	}

	// "copy NAME" clones the active preset under a fresh id and selects it
	if args[0] == "copy" {
		name := strings.Join(args[1:], " ")
		if name == "" {
			return true, fmt.Errorf("usage: /%s copy NAME", kind)
		}
		id := view.copy(ctx, name)
		fmt.Printf("%s copied to %s\n", commandStyle.Render("[OK]"), id)
		return true, nil
	}

	id := args[0]
	if !view.has(id) {
		return true, fmt.Errorf("no %s preset %q", kind, id)
	}
	view.set(ctx, id)

	switch kind {
	case "format":
		// The conversation remembers its format so switching conversations
		// restores it.
		conv := app.Manager.Current()
		conv.PromptFormat = id
		app.Manager.Save(ctx)
	case "connection":
		app.ReloadClient()
	}

	fmt.Printf("%s %s -> %s\n", commandStyle.Render("[OK]"), kind, id)
	return true, nil
}

// handleLorebookCommand manages lorebooks and their attachment to the
// current conversation.
func handleLorebookCommand(ctx context.Context, app *App, args []string, rest string) (bool, error) {
	conv := app.Manager.Current()

	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "", "list":
		ids := app.Manager.LorebookIDs()
		if len(ids) == 0 {
			fmt.Println(infoStyle.Render("[No lorebooks]"))
			return true, nil
		}
		fmt.Println(headerStyle.Render("Lorebooks"))
		for i, id := range ids {
			book := app.Manager.Lorebook(id)
			marker := "  "
			if conv.HasLorebook(id) {
				marker = commandStyle.Render("* ")
			}
			fmt.Printf("%s%d. %s (%s, %d entries)\n", marker, i+1, book.Name, id, len(book.Entries))
		}
		fmt.Println(mutedStyle.Render("  * = enabled for this conversation"))
		return true, nil

	case "create":
		name := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		if name == "" {
			return true, fmt.Errorf("usage: /lorebook create NAME")
		}
		id := app.Manager.CreateLorebook(ctx, name)
		fmt.Printf("%s %s (%s)\n", commandStyle.Render("[Created]"), name, id)
		return true, nil

	case "delete":
		if len(args) < 2 {
			return true, fmt.Errorf("usage: /lorebook delete ID")
		}
		app.Manager.DeleteLorebook(ctx, resolveLorebookID(app, args[1]))
		fmt.Println(commandStyle.Render("[Deleted]"))
		return true, nil

	case "enable":
		if len(args) < 2 {
			return true, fmt.Errorf("usage: /lorebook enable ID")
		}
		id := resolveLorebookID(app, args[1])
		if app.Manager.Lorebook(id) == nil {
			return true, fmt.Errorf("no lorebook %q", args[1])
		}
		conv.EnableLorebook(id)
		app.Manager.Save(ctx)
		fmt.Println(commandStyle.Render("[Enabled]"))
		return true, nil

	case "disable":
		if len(args) < 2 {
			return true, fmt.Errorf("usage: /lorebook disable ID")
		}
		conv.DisableLorebook(resolveLorebookID(app, args[1]))
		app.Manager.Save(ctx)
		fmt.Println(commandStyle.Render("[Disabled]"))
		return true, nil

	case "order":
		if len(args) < 2 {
			return true, fmt.Errorf("usage: /lorebook order ID [ID ...]")
		}
		order := make([]string, 0, len(args)-1)
		for _, a := range args[1:] {
			order = append(order, resolveLorebookID(app, a))
		}
		app.Manager.UpdateLorebookOrder(ctx, order)
		fmt.Println(commandStyle.Render("[Reordered]"))
		return true, nil

	default:
		return true, fmt.Errorf("unknown lorebook command %q (list/create/delete/enable/disable/order)", sub)
	}
}

// resolveLorebookID accepts either a lorebook id or a 1-based index into
// the /lorebook list ordering.
func resolveLorebookID(app *App, arg string) string {
	ids := app.Manager.LorebookIDs()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(ids) {
		return ids[n-1]
	}
	return arg
}

// handleBudgetCommand shows or sets the lorebook activation budgets.
// 0 disables lorebook insertion entirely; -1 removes the cap.
func handleBudgetCommand(ctx context.Context, app *App, args []string) (bool, error) {
	if len(args) == 0 {
		fmt.Printf("%s insertions=%s tokens=%s\n",
			infoStyle.Render("[Budget]"),
			describeBudget(app.Manager.MaxInsertions()),
			describeBudget(app.Manager.MaxTokens()))
		return true, nil
	}

	if len(args) != 2 {
		return true, fmt.Errorf("usage: /budget insertions|tokens N (0 disables, -1 uncapped)")
	}

	n, err := strconv.Atoi(args[1])
	if err != nil || n < model.BudgetUnlimited {
		return true, fmt.Errorf("budget must be an integer >= -1")
	}

	switch strings.ToLower(args[0]) {
	case "insertions":
		app.Manager.SetMaxInsertions(ctx, n)
	case "tokens":
		app.Manager.SetMaxTokens(ctx, n)
	default:
		return true, fmt.Errorf("unknown budget %q (insertions or tokens)", args[0])
	}

	fmt.Printf("%s %s = %s\n", commandStyle.Render("[OK]"), args[0], describeBudget(n))
	return true, nil
}

// describeBudget renders a budget value with its sentinel meanings.
func describeBudget(n int) string {
	switch n {
	case model.BudgetDisabled:
		return "0 (disabled)"
	case model.BudgetUnlimited:
		return "uncapped"
	default:
		return strconv.Itoa(n)
	}
}

// printLastPrompt decompresses and prints the prompt snapshot behind the
// most recent bot reply.
func printLastPrompt(app *App) error {
	conv := app.Manager.Current()
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if msg.Role != model.RoleBot || msg.CompressedPrompt == "" {
			continue
		}
		snapshot, err := generate.PromptSnapshot(msg)
		if err != nil {
			return fmt.Errorf("decoding prompt snapshot: %w", err)
		}
		fmt.Println(headerStyle.Render("Prompt for message " + msg.Key))
		fmt.Println(mutedStyle.Render(strings.Repeat("─", 30)))
		fmt.Println(snapshot)
		return nil
	}
	return fmt.Errorf("no reply with a prompt snapshot yet")
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(session *ChatSession) {
	app := session.App
	conv := app.Manager.Current()
	conn := app.Conns.Current()

	fmt.Println()
	fmt.Println(welcomeStyle.Render("loom interactive chat"))
	fmt.Println(mutedStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n", infoStyle.Render("Conversation:"), commandStyle.Render(conv.DisplayName))
	fmt.Printf("%s %s (%s)\n", infoStyle.Render("Connection:"),
		commandStyle.Render(app.Conns.CurrentID()), conn.Model)
	fmt.Printf("%s %s\n", infoStyle.Render("Store:"), commandStyle.Render(app.StoreBackend))
	fmt.Printf("%s %s\n", infoStyle.Render("Format:"), commandStyle.Render(app.Formats.CurrentID()))

	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printConversations lists stored conversations, marking the current one.
func printConversations(app *App) {
	ids := app.Manager.ConversationIDs()
	if len(ids) == 0 {
		fmt.Println(infoStyle.Render("[No conversations]"))
		return
	}

	current := ""
	if conv := app.Manager.Current(); conv != nil {
		current = conv.ID
	}

	fmt.Println(headerStyle.Render("Conversations"))
	for i, id := range ids {
		conv := app.Manager.Conversation(id)
		marker := "  "
		if id == current {
			marker = commandStyle.Render("* ")
		}
		fmt.Printf("%s%d. %s (%s, %d messages)\n",
			marker, i+1, conv.DisplayName, id, len(conv.Messages))
	}
}

// printHelp prints available commands.
func printHelp() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Available Commands"))
	fmt.Println(mutedStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new", "Start a new conversation"},
		{"/list", "List conversations"},
		{"/switch ID", "Switch to a conversation (id or list number)"},
		{"/delete [ID]", "Delete a conversation (current if omitted)"},
		{"/rename NAME", "Rename the current conversation"},
		{"/names USER BOT", "Set participant display names"},
		{"/memory [TEXT]", "Show or set conversation memory"},
		{"/note [TEXT]", "Show or set the author's note"},
		{"/format [ID]", "Show or switch prompt format preset"},
		{"/sampling [ID]", "Show or switch sampling preset"},
		{"/connection [ID]", "Show or switch connection preset"},
		{"/lorebook ...", "Manage lorebooks (/lorebook for list)"},
		{"/budget ...", "Show or set lorebook budgets"},
		{"/history", "Show conversation history"},
		{"/regen", "Regenerate the last reply"},
		{"/prompt", "Show the prompt behind the last reply"},
		{"/drop KEY", "Delete a message by key"},
		{"/toggle KEY", "Enable/disable a message by key"},
		{"/status, /s", "Show session statistics"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-18s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C interrupts the current generation, Ctrl+D exits"))
	fmt.Println()
}

// printStatus prints session statistics.
func printStatus(session *ChatSession) {
	app := session.App
	conv := app.Manager.Current()
	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(headerStyle.Render("Session Status"))
	fmt.Println(mutedStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	fmt.Printf("  %s %s (%s)\n",
		infoStyle.Render("Conversation:"), conv.DisplayName, conv.ID)
	fmt.Printf("  %s %d messages\n", infoStyle.Render("History:"), len(conv.Messages))
	fmt.Printf("  %s %s\n", infoStyle.Render("Connection:"), app.Conns.CurrentID())
	fmt.Printf("  %s %s\n", infoStyle.Render("Sampling:"), app.Sampling.CurrentID())
	fmt.Printf("  %s %d enabled\n",
		infoStyle.Render("Lorebooks:"), len(app.Manager.EnabledLorebooks(conv)))
	fmt.Printf("  %s %s\n", infoStyle.Render("Duration:"), elapsed.String())

	fmt.Println()
	fmt.Printf("  %s %d (%d interrupted)\n",
		infoStyle.Render("Turns:"), session.Turns, session.Interrupted)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Tokens:"), formatNumber(session.TotalTokens))
	fmt.Println()
}

// printHistory prints the conversation history.
func printHistory(app *App) {
	conv := app.Manager.Current()
	if len(conv.Messages) == 0 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Conversation History"))
	fmt.Println(mutedStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for _, msg := range conv.Messages {
		label := msg.Username
		if msg.Role == model.RoleUser {
			label = userLabelStyle.Render(label)
		} else {
			label = botLabelStyle.Render(label)
		}

		// One line per message, width-truncated for narrow terminals
		content := util.FlattenWhitespace(msg.Text)
		content = util.TruncateWidth(content, GetTerminalWidth()-20)

		suffix := ""
		if msg.Disabled {
			suffix = mutedStyle.Render(" (disabled)")
		}

		fmt.Printf("  [%s] %s: %s%s\n", msg.Key, label, content, suffix)
	}

	fmt.Println()
}

// printExitSummary prints the session summary on exit.
func printExitSummary(session *ChatSession) {
	if session.Turns == 0 {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	elapsed := time.Since(session.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(headerStyle.Render("Session Summary"))
	fmt.Println(mutedStyle.Render(strings.Repeat("─", 15)))

	fmt.Printf("  %s %d (%d interrupted)\n",
		infoStyle.Render("Turns:"), session.Turns, session.Interrupted)
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Tokens:"), formatNumber(session.TotalTokens))
	fmt.Printf("  %s %s\n",
		infoStyle.Render("Duration:"), elapsed.String())

	fmt.Println()
	fmt.Println(infoStyle.Render("Goodbye!"))
}
