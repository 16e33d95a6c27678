package load

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"protoforge/internal/proto"
)

func TestWatcherLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeDoc(t, dir, "base.prototype.yaml", `
id: Base
`)

	loader, store, reg := newTestLoader(t, dir)
	require.NoError(t, loader.LoadAll(context.Background()))

	watcher, err := NewWatcher(loader, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	require.NoError(t, watcher.Start(ctx)) // double start is a no-op
	defer watcher.Stop()

	t.Run("created document is registered", func(t *testing.T) {
		writeDoc(t, dir, "new.prototype.yaml", `
id: New
templates: [base.prototype.yaml]
`)
		require.Eventually(t, func() bool {
			return reg.Contains("New")
		}, 5*time.Second, 10*time.Millisecond)

		tr, ok := reg.TreeByID("New")
		require.True(t, ok)
		assert.Len(t, tr.Prototypes(), 2)
	})

	t.Run("modified document cascades to dependents", func(t *testing.T) {
		writeDoc(t, dir, "base.prototype.yaml", `
id: Base
schematics:
  tags: [reloaded]
`)
		newHandle := proto.HandleFromPath("new.prototype.yaml")
		require.Eventually(t, func() bool {
			return watcher.Stats().Reloads >= 2 && reg.ContainsHandle(newHandle)
		}, 5*time.Second, 10*time.Millisecond)

		base, ok := store.Get(proto.HandleFromPath("base.prototype.yaml"))
		require.True(t, ok)
		assert.Equal(t, 1, base.Schematics.Len())
	})

	t.Run("removed document is unregistered", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, "new.prototype.yaml")))
		require.Eventually(t, func() bool {
			return !reg.Contains("New")
		}, 5*time.Second, 10*time.Millisecond)

		assert.GreaterOrEqual(t, watcher.Stats().Removals, 1)
	})
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	loader, _, _ := newTestLoader(t, dir)

	watcher, err := NewWatcher(loader, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, watcher.Start(context.Background()))

	writeDoc(t, dir, "notes.txt", "not a prototype")
	writeDoc(t, dir, "half.yaml", "id: Nope")

	time.Sleep(150 * time.Millisecond)
	stats := watcher.Stats()
	assert.Zero(t, stats.FilesCreated)
	assert.Zero(t, stats.Reloads)

	watcher.Stop()
	watcher.Stop() // double stop is a no-op
}
