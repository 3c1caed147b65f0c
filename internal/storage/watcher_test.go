// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportFileRegistersLorebook(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)

	dir := t.TempDir()
	iw, err := NewImportWatcher(mgr, dir, 10*time.Millisecond)
	require.NoError(t, err)
	defer iw.Close()

	path := filepath.Join(dir, "realm.json")
	content := `{"name":"realm","entries":[{"entry_name":"castle","triggers":["keep"],"body":"The old keep.","enabled":true}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	iw.importFile(path)

	ids := mgr.LorebookIDs()
	require.Len(t, ids, 1)
	book := mgr.Lorebook(ids[0])
	require.NotNil(t, book)
	assert.Equal(t, "realm", book.Name)
	require.Len(t, book.Entries, 1)
	assert.NotEmpty(t, book.Entries[0].ID, "entries without ids get one assigned")
	assert.Equal(t, []string{"keep"}, book.Entries[0].Triggers)

	// Re-importing the same file updates the existing book.
	content = `{"name":"realm v2","entries":[]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	iw.importFile(path)

	require.Len(t, mgr.LorebookIDs(), 1)
	assert.Equal(t, "realm v2", mgr.Lorebook(ids[0]).Name)
}

func TestImportFileSkipsMalformedJSON(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)

	dir := t.TempDir()
	iw, err := NewImportWatcher(mgr, dir, 10*time.Millisecond)
	require.NoError(t, err)
	defer iw.Close()

	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
	iw.importFile(path)

	assert.Empty(t, mgr.LorebookIDs())
}

func TestWatchImportsPreexistingFiles(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newTestManager(t)
	mgr.Startup(ctx)

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"seed","entries":[]}`), 0o644))

	iw, err := NewImportWatcher(mgr, dir, 10*time.Millisecond)
	require.NoError(t, err)
	defer iw.Close()
	require.NoError(t, iw.Watch())

	require.Eventually(t, func() bool {
		return len(mgr.LorebookIDs()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "seed", mgr.Lorebook(mgr.LorebookIDs()[0]).Name)
}
