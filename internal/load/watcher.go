package load

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"protoforge/internal/logging"
)

// Watcher keeps the registry in sync with prototype documents on disk.
// Events are debounced per path so editors that write in bursts trigger one
// reload, not several.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	loader      *Loader
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for diagnostics and tests.
type WatcherStats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	Reloads       int
	Removals      int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

func NewWatcher(loader *Loader, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fsw,
		loader:      loader,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the loader's root and every directory under it.
// Non-blocking; the event loop runs in its own goroutine until Stop or
// context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	log := logging.Get(logging.CategoryWatcher)
	err := filepath.WalkDir(w.loader.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				log.Warnf("watch %s: %v", path, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Infof("watching %s", w.loader.Root())

	go w.run(ctx)
	return nil
}

// Stop shuts down the event loop and closes the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatcher).Errorf("close watcher: %v", err)
	}
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	log := logging.Get(logging.CategoryWatcher)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New subdirectories need their own watch before documents inside
	// them produce events.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				logging.Get(logging.CategoryWatcher).Warnf("watch %s: %v", event.Name, err)
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, Suffix) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = time.Now()
	switch {
	case event.Op&fsnotify.Create != 0:
		w.stats.FilesCreated++
	case event.Op&fsnotify.Write != 0:
		w.stats.FilesModified++
	default:
		w.stats.FilesDeleted++
	}
	w.debounceMap[event.Name] = time.Now()
}

// processSettled reloads every path whose last event is older than the
// debounce window.
func (w *Watcher) processSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.sync(path)
	}
}

// sync reconciles one document path with the registry: removed files are
// unregistered (cascading to dependents), everything else is reloaded.
func (w *Watcher) sync(path string) {
	log := logging.Get(logging.CategoryWatcher)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		handle := w.loader.HandleFor(path)
		w.loader.store.Delete(handle)
		w.loader.registry.Unregister(handle, w.loader.store, w.loader.config)
		w.mu.Lock()
		w.stats.Removals++
		w.mu.Unlock()
		log.Infof("unregistered removed document %s", path)
		return
	}

	handle, err := w.loader.LoadFile(path)
	if err != nil {
		log.Errorf("reload %s: %v", path, err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}
	if err := w.loader.registry.Reload(handle, w.loader.store, w.loader.config); err != nil {
		log.Errorf("re-register %s: %v", path, err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.Reloads++
	w.mu.Unlock()
	log.Infof("reloaded %s", path)
}
