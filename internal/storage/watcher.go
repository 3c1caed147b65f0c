// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/loom-tui/internal/model"
)

// =============================================================================
// LOREBOOK IMPORT WATCHER
// =============================================================================

// lorebookFile is the on-disk import format: a lorebook without an id.
// The id is assigned on import so re-dropping a file never collides.
type lorebookFile struct {
	Name    string                 `json:"name"`
	Entries []*model.LorebookEntry `json:"entries"`
}

// ImportWatcher watches a drop directory for lorebook JSON files and
// imports them into the manager as they appear.
type ImportWatcher struct {
	mgr      *Manager
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time // file path -> last change time

	ctx    context.Context
	cancel context.CancelFunc

	// imported tracks base filename -> lorebook id so a rewritten file
	// updates its book instead of importing a duplicate.
	imported map[string]string
}

// NewImportWatcher creates a watcher over dir. The directory is created if
// missing.
func NewImportWatcher(mgr *Manager, dir string, debounce time.Duration) (*ImportWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ImportWatcher{
		mgr:      mgr,
		dir:      dir,
		watcher:  watcher,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		imported: make(map[string]string),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch imports any files already present, then starts watching for new
// ones.
func (iw *ImportWatcher) Watch() error {
	if err := iw.watcher.Add(iw.dir); err != nil {
		return err
	}

	// Pick up files dropped before startup.
	entries, err := os.ReadDir(iw.dir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				iw.enqueue(filepath.Join(iw.dir, entry.Name()))
			}
		}
	}

	go iw.processEvents()
	go iw.processPending()

	return nil
}

func (iw *ImportWatcher) processEvents() {
	for {
		select {
		case <-iw.ctx.Done():
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				iw.enqueue(event.Name)
			}

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("storage: lorebook watcher error: %v", err)
		}
	}
}

func (iw *ImportWatcher) enqueue(path string) {
	if filepath.Ext(path) != ".json" {
		return
	}
	iw.mu.Lock()
	iw.pending[path] = time.Now()
	iw.mu.Unlock()
}

func (iw *ImportWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-iw.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			iw.mu.Lock()
			var ready []string
			for path, changed := range iw.pending {
				if now.Sub(changed) >= iw.debounce {
					ready = append(ready, path)
					delete(iw.pending, path)
				}
			}
			iw.mu.Unlock()

			for _, path := range ready {
				iw.importFile(path)
			}
		}
	}
}

// importFile reads a dropped lorebook file and imports or updates it. A
// malformed file is logged and skipped; it never disturbs loaded books.
func (iw *ImportWatcher) importFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var file lorebookFile
	if err := json.Unmarshal(data, &file); err != nil {
		log.Printf("storage: skipping malformed lorebook file %s: %v", filepath.Base(path), err)
		return
	}
	if file.Name == "" {
		file.Name = filepath.Base(path)
	}
	// Dropped files often omit entry ids; assign them here so validation
	// passes and entries stay addressable.
	for _, entry := range file.Entries {
		if entry != nil && entry.ID == "" {
			entry.ID = iw.mgr.newID()
		}
	}

	base := filepath.Base(path)
	if id, ok := iw.imported[base]; ok {
		// The swap runs inside the manager so prompt assembly on the REPL
		// goroutine never reads the book mid-mutation.
		if iw.mgr.UpdateLorebookContents(iw.ctx, id, file.Name, file.Entries) {
			return
		}
		delete(iw.imported, base)
	}

	book := &model.Lorebook{Name: file.Name, Entries: file.Entries}
	id, err := iw.mgr.ImportLorebook(iw.ctx, book)
	if err != nil {
		log.Printf("storage: rejecting invalid lorebook file %s: %v", base, err)
		return
	}
	iw.imported[base] = id
}

// Close stops watching and releases resources.
func (iw *ImportWatcher) Close() error {
	iw.cancel()
	if iw.watcher != nil {
		return iw.watcher.Close()
	}
	return nil
}
