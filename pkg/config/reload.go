// Configuration hot-reload support for the watch command.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/types"
)

// ReloadCallback is called with the freshly loaded items after the configs
// directory changes, or with a non-nil error when reloading fails.
type ReloadCallback func(items map[string]*types.ConfigItem, err error)

// ReloadManager watches the configs directory and reloads definitions when
// files change, debouncing bursts of filesystem events.
type ReloadManager struct {
	loader         *Loader
	logger         logger.Logger
	watcher        *fsnotify.Watcher
	callbacks      []ReloadCallback
	debouncePeriod time.Duration
	debounceTimer  *time.Timer
	mu             sync.Mutex
	isWatching     bool
}

// NewReloadManager creates a reload manager around an existing loader
func NewReloadManager(loader *Loader, log logger.Logger) *ReloadManager {
	return &ReloadManager{
		loader:         loader,
		logger:         log,
		debouncePeriod: 500 * time.Millisecond,
	}
}

// AddCallback registers a reload callback
func (rm *ReloadManager) AddCallback(cb ReloadCallback) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.callbacks = append(rm.callbacks, cb)
}

// Start begins watching the configs directory tree. It returns once the
// watcher is installed; events are handled until ctx is cancelled or Stop
// is called.
func (rm *ReloadManager) Start(ctx context.Context) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isWatching {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	rm.watcher = watcher

	// Watch the whole tree; fsnotify does not recurse on its own
	dir, err := filepath.Abs(rm.loader.configsDir)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to resolve configs directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch configs directory: %w", err)
	}
	for _, item := range rm.loader.Items() {
		sub := filepath.Dir(item.FilePath)
		if sub != dir {
			// Best effort; a missing subdirectory only narrows coverage
			_ = watcher.Add(sub)
		}
	}

	rm.isWatching = true
	go rm.watchLoop(ctx)

	rm.logger.Info("Watching configs directory", logger.WithField("dir", dir))
	return nil
}

// Stop stops watching and releases the watcher.
func (rm *ReloadManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if !rm.isWatching {
		return
	}
	rm.isWatching = false

	if rm.debounceTimer != nil {
		rm.debounceTimer.Stop()
	}
	rm.watcher.Close()
}

func (rm *ReloadManager) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			rm.Stop()
			return
		case event, ok := <-rm.watcher.Events:
			if !ok {
				return
			}
			if rm.relevant(event) {
				rm.scheduleReload()
			}
		case err, ok := <-rm.watcher.Errors:
			if !ok {
				return
			}
			rm.logger.Warn("Filesystem watcher error", logger.WithField("error", err))
		}
	}
}

func (rm *ReloadManager) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".yml" || ext == ".yaml"
}

// scheduleReload debounces event bursts (editors often fire several events
// per save) into a single reload.
func (rm *ReloadManager) scheduleReload() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.debounceTimer != nil {
		rm.debounceTimer.Stop()
	}
	rm.debounceTimer = time.AfterFunc(rm.debouncePeriod, rm.reload)
}

func (rm *ReloadManager) reload() {
	rm.logger.Info("Configuration change detected, reloading")

	items, err := rm.loader.Load()
	if err != nil {
		rm.logger.Error("Failed to reload configurations", logger.WithField("error", err))
	}

	rm.mu.Lock()
	callbacks := make([]ReloadCallback, len(rm.callbacks))
	copy(callbacks, rm.callbacks)
	rm.mu.Unlock()

	for _, cb := range callbacks {
		cb(items, err)
	}
}
