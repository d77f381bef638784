package main

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchIgnores(t *testing.T) {
	t.Parallel()
	root := filepath.FromSlash("/repo")
	ignores, err := watchIgnores(root, filepath.Join(root, ".treesync"))
	require.NoError(t, err)

	for _, p := range []string{
		".git",
		".git/HEAD",
		"sub/.git/config",
		"src/foo.lua.swp",
		"src/foo.lua~",
		".treesync/state.db-wal",
	} {
		_, ok := ignores.Ignores(filepath.Join(root, filepath.FromSlash(p)))
		assert.True(t, ok, "%s should be ignored", p)
	}
	for _, p := range []string{"src/foo.lua", "default.project.json", "src/.gitkeep"} {
		_, ok := ignores.Ignores(filepath.Join(root, filepath.FromSlash(p)))
		assert.False(t, ok, "%s should not be ignored", p)
	}
}

func TestDirWatcher_ReportsBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping filesystem watch test")
	}
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0o755))

	ignores, err := watchIgnores(root, filepath.Join(root, ".treesync"))
	require.NoError(t, err)
	w, err := newDirWatcher(root, ignores, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batches := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) error {
			batches <- changed
			return nil
		})
	}()

	foo := filepath.Join(root, "src", "foo.lua")
	require.NoError(t, os.WriteFile(foo, []byte("return 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "foo.lua.swp"), []byte("x"), 0o644))

	select {
	case changed := <-batches:
		assert.True(t, slices.Contains(changed, foo), "batch %v should contain %s", changed, foo)
		assert.NotContains(t, changed, filepath.Join(root, "src", "foo.lua.swp"))
	case <-ctx.Done():
		t.Fatal("timed out waiting for a change batch")
	}

	cancel()
	require.NoError(t, <-done)
}
