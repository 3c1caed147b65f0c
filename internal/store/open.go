// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the durable key-value store backing the storage
// manager.
package store

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
)

// Backend names accepted in a preference list.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// DefaultPreference is the backend order tried by Open when the caller has
// no explicit preference.
var DefaultPreference = []string{BackendSQLite, BackendFile}

// ErrNoBackend is returned when every backend in the preference list failed
// to initialize.
var ErrNoBackend = errors.New("no storage backend could be initialized")

// Open walks the preference list and returns the first backend that
// initializes, along with its name. Initialization failures are logged and
// the next backend is tried; only total failure is returned to the caller.
func Open(dataDir string, preference []string) (KV, string, error) {
	if len(preference) == 0 {
		preference = DefaultPreference
	}

	var lastErr error
	for _, name := range preference {
		kv, err := openBackend(dataDir, name)
		if err != nil {
			log.Printf("store: backend %q failed to initialize, falling back: %v", name, err)
			lastErr = err
			continue
		}
		return kv, name, nil
	}
	return nil, "", fmt.Errorf("%w: %v", ErrNoBackend, lastErr)
}

func openBackend(dataDir, name string) (KV, error) {
	switch name {
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, "loom.db"))
	case BackendFile:
		return NewFileStore(filepath.Join(dataDir, "records"))
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
