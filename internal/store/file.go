// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the durable key-value store backing the storage
// manager.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/loom-tui/internal/util"
)

// =============================================================================
// FILE BACKEND
// =============================================================================

// FileStore is the fallback KV backend: one file per key in a flat
// directory, written atomically.
//
// Keys are restricted to the well-known prefixes (uppercase ASCII, digits,
// '_' and '-'), so they map directly to file names.
type FileStore struct {
	baseDir string
}

// NewFileStore creates (if necessary) the base directory and returns a
// store over it.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.baseDir, key+".json")
}

// Get returns the value for key, or found=false when absent.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("file get %q: %w", key, err)
	}
	return data, true, nil
}

// Put stores value under key, replacing any previous value.
func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	if err := util.AtomicWriteFile(s.path(key), value, 0644); err != nil {
		return fmt.Errorf("file put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Absent keys are not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file delete %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys with the given prefix.
func (s *FileStore) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("file keys %q: %w", prefix, err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}
