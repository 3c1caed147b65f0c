// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared application wiring for loom CLI commands.
//
// Both the interactive chat REPL and the one-shot ask command need the
// same stack underneath: configuration, a key-value store, the storage
// manager, the settings preset managers, and a generator bound to the
// active connection. App assembles and tears all of that down in one
// place.

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/loom-tui/internal/backend"
	"github.com/jeranaias/loom-tui/internal/config"
	"github.com/jeranaias/loom-tui/internal/generate"
	"github.com/jeranaias/loom-tui/internal/settings"
	"github.com/jeranaias/loom-tui/internal/storage"
	"github.com/jeranaias/loom-tui/internal/store"
)

// =============================================================================
// APP
// =============================================================================

// App bundles the wired-up subsystems a CLI command runs against.
type App struct {
	Config *config.Config

	// KV is the opened store; StoreBackend names which backend Open chose.
	KV           store.KV
	StoreBackend string

	Manager  *storage.Manager
	Formats  *settings.Manager[settings.FormatSettings]
	Sampling *settings.Manager[settings.SamplingSettings]
	Conns    *settings.Manager[settings.ConnectionSettings]
	Gen      *generate.Generator

	// Watcher is non-nil when the lorebook drop directory is being watched.
	Watcher *storage.ImportWatcher
}

// OpenApp loads configuration, opens the store, restores persisted state,
// and wires a generator against the current connection preset.
func OpenApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// The plain theme renders without color regardless of TTY.
	if cfg.UI.Theme == "plain" {
		ForceColorsEnabled(false)
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	kv, backendName, err := store.Open(dataDir, cfg.Store.Preference)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	app := &App{
		Config:       cfg,
		KV:           kv,
		StoreBackend: backendName,
		Manager:      storage.NewManager(kv),
		Formats:      settings.NewFormatManager(kv),
		Sampling:     settings.NewSamplingManager(kv),
		Conns:        settings.NewConnectionManager(kv),
	}

	app.Manager.Startup(ctx)
	app.Formats.Load(ctx)
	app.Sampling.Load(ctx)
	app.Conns.Load(ctx)

	app.Gen = generate.NewGenerator(app.Manager, backend.NewClient(app.clientConfig()))
	app.Gen.ScanMessages = cfg.Prompt.ScanMessages

	// A session always has a conversation to talk in.
	if app.Manager.Current() == nil {
		app.Manager.NewConversation(ctx)
	}

	return app, nil
}

// WatchLorebooks starts the drop-directory import watcher when the config
// enables it. Failures are reported, not fatal; chat works without it.
func (a *App) WatchLorebooks() error {
	if !a.Config.Lorebook.WatchEnabled {
		return nil
	}

	watchDir, err := a.Config.ResolveWatchDir()
	if err != nil {
		return err
	}

	debounce := time.Duration(a.Config.Lorebook.WatchDebounceMs) * time.Millisecond
	watcher, err := storage.NewImportWatcher(a.Manager, watchDir, debounce)
	if err != nil {
		return err
	}
	if err := watcher.Watch(); err != nil {
		watcher.Close()
		return err
	}

	a.Watcher = watcher
	return nil
}

// Close releases the watcher and the store.
func (a *App) Close() {
	if a.Watcher != nil {
		a.Watcher.Close()
	}
	if a.KV != nil {
		a.KV.Close()
	}
}

// clientConfig builds the backend client config from the current connection
// preset. Values from config.toml override the built-in local preset so a
// bare install talks to the endpoint the config names.
func (a *App) clientConfig() *backend.ClientConfig {
	conn := a.Conns.Current()

	if a.Conns.CurrentID() == settings.ConnectionLocal {
		if ep := a.Config.Connection.Endpoint; ep != "" {
			conn.Endpoint = ep
		}
		if m := a.Config.Connection.Model; m != "" {
			conn.Model = m
		}
		if k := a.Config.Connection.APIKey; k != "" {
			conn.APIKey = k
		}
		if t := a.Config.Connection.TimeoutSecs; t > 0 {
			conn.TimeoutSecs = t
		}
	}

	return backend.ConfigFromConnection(conn)
}

// ReloadClient rebinds the generator to the current connection preset.
// Call after switching presets with the connections manager.
func (a *App) ReloadClient() {
	a.Gen.SetClient(backend.NewClient(a.clientConfig()))
}

// FormatFor resolves the prompt format for a conversation: its named
// preset when it resolves, otherwise the format manager's current preset.
func (a *App) FormatFor(promptFormat string) settings.FormatSettings {
	if promptFormat != "" && a.Formats.Has(promptFormat) {
		return a.Formats.Get(promptFormat)
	}
	return a.Formats.Current()
}

// SamplingCurrent returns the active sampling preset by pointer, the shape
// the generator consumes.
func (a *App) SamplingCurrent() *settings.SamplingSettings {
	s := a.Sampling.Current()
	return &s
}
